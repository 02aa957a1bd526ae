package authclient

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	internalflows "github.com/MrEthical07/authclient/internal/flows"
)

// DefaultExportName is used when neither Content-Disposition nor the caller names the file.
const DefaultExportName = "download"

// Upload posts file as multipart/form-data. The Content-Type header always carries the
// generated boundary, whatever WithHeader set.
func (c *Client) Upload(ctx context.Context, path string, file UploadFile, opts ...RequestOption) Response {
	if !c.ready() {
		return failure(ErrClientNotReady, nil, 0, ErrClientNotReady.Error())
	}
	body, contentType, err := internalflows.EncodeMultipart(internalflows.UploadPart{
		FieldName: file.FieldName,
		FileName:  file.FileName,
		Reader:    file.Reader,
		Fields:    file.Fields,
	})
	if err != nil {
		msg := "Invalid upload: " + err.Error()
		if errors.Is(err, internalflows.ErrNilUpload) {
			msg = "Invalid upload: no file content"
		}
		return failure(ErrInvalidUpload, err, 0, msg)
	}

	o := collectOptions(opts)
	req := internalflows.Request{
		Method:      http.MethodPost,
		Path:        path,
		Query:       o.query,
		Header:      o.header,
		Body:        body,
		ContentType: contentType,
		Timeout:     c.transferTimeout(o),
	}
	ctx = WithRequestID(ctx, requestIDOrNew(ctx))
	resp := c.normalizeDispatch(ctx, req, c.dispatch(ctx, req))
	if resp.Success {
		c.metricInc(MetricUpload)
	}
	return resp
}

// ExportFile downloads a file from path and hands it to the configured saver.
//
// A JSON reply means the backend refused the export: nothing is saved and the failure
// carries the backend message. Otherwise the filename comes from Content-Disposition,
// falling back to defaultName. A successful Response has nil Data.
func (c *Client) ExportFile(ctx context.Context, path, defaultName string, opts ...RequestOption) Response {
	if !c.ready() {
		return failure(ErrClientNotReady, nil, 0, ErrClientNotReady.Error())
	}
	o := collectOptions(opts)
	req := internalflows.Request{
		Method:  http.MethodGet,
		Path:    path,
		Query:   o.query,
		Header:  o.header,
		Accept:  "*/*",
		Timeout: c.transferTimeout(o),
	}
	ctx = WithRequestID(ctx, requestIDOrNew(ctx))
	res := c.dispatch(ctx, req)
	if res.Failure != internalflows.DispatchFailureNone || !internalflows.Successful(res.Status) {
		return c.normalizeDispatch(ctx, req, res)
	}

	entry := c.log.WithFields(logrus.Fields{
		"operation":  "export",
		"path":       path,
		"status":     res.Status,
		"request_id": res.RequestID,
	})

	if internalflows.IsJSON(res.Header.Get("Content-Type")) {
		resp := failure(ErrExportRejected, nil, res.Status, internalflows.MessageFromBody(res.Status, res.Body))
		resp.RequestID = res.RequestID
		c.metricInc(MetricExportRejected)
		c.metricInc(MetricRequestFailure)
		c.emitAudit(ctx, AuditEvent{
			EventType: AuditExportRejected,
			Method:    req.Method,
			Path:      path,
			Status:    res.Status,
			Error:     resp.Message,
		})
		entry.WithField("outcome", "rejected").Info(resp.Message)
		return resp
	}

	name := internalflows.FilenameFromDisposition(res.Header.Get("Content-Disposition"), defaultName)
	if name == "" {
		name = DefaultExportName
	}
	if err := c.saver.Save(ctx, name, bytes.NewReader(res.Body)); err != nil {
		resp := failure(ErrSaveFailed, err, res.Status, "Failed to save file: "+err.Error())
		resp.RequestID = res.RequestID
		c.metricInc(MetricRequestFailure)
		entry.WithField("outcome", "failure").WithError(err).Warn("export save failed")
		return resp
	}

	c.metricInc(MetricExport)
	c.metricInc(MetricRequestSuccess)
	entry.WithFields(logrus.Fields{
		"outcome":  "success",
		"filename": name,
		"bytes":    len(res.Body),
	}).Debug("export saved")
	return Response{Success: true, Message: SuccessMessage, Status: res.Status, RequestID: res.RequestID}
}

func (c *Client) transferTimeout(o requestOptions) time.Duration {
	if o.timeout > 0 {
		return o.timeout
	}
	return c.config.Timeouts.Transfer
}
