package resumable

import (
	"context"
	"net/url"

	"github.com/tonimelisma/resumable-go/transport"
)

// transportAdapter satisfies HTTPSession on top of the default
// transport.Session, translating between the transport package's own
// Response/FilePart types and the root package's. The transport package
// cannot import this package (it would cycle back through HTTPSession), so
// the conversion lives here instead, at the consumer.
type transportAdapter struct {
	inner *transport.Session
}

func (a *transportAdapter) Get(ctx context.Context, query url.Values) (*Response, error) {
	resp, err := a.inner.Get(ctx, query)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
}

func (a *transportAdapter) Post(ctx context.Context, query url.Values, file FilePart) (*Response, error) {
	resp, err := a.inner.Post(ctx, query, transport.FilePart{
		FieldName: file.FieldName,
		FileName:  file.FileName,
		Content:   file.Content,
	})
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
}
