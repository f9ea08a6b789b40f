package resource

import (
	"bytes"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/store"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/auth"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/etag"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
)

// maxBody bounds request bodies read into memory.
const maxBody = 64 << 20

// Request is an authenticated request with its transaction started.
type Request struct {
	Tx          *txn.Txn
	Body        string
	ContentType string
	Pre         etag.Preconditions
}

// Begin validates the path identifiers, reads the body and starts a
// transaction. Callers must Close the transaction.
func Begin(c echo.Context, mgr *txn.Manager, ids iri.IDs) (*Request, error) {
	actor := auth.GetActor(c)
	if actor == nil {
		return nil, apperror.ErrUnauthorized
	}
	if err := validate(ids); err != nil {
		return nil, err
	}

	req := c.Request()
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(req.Body, maxBody))
		if err != nil {
			return nil, apperror.ErrBadRequest.WithMessage("Failed to read request body").WithInternal(err)
		}
	}
	contentType := req.Header.Get(echo.HeaderContentType)

	tx := mgr.Begin(ids, *actor, txn.Meta{
		Path:        req.URL.Path,
		Method:      req.Method,
		Body:        string(body),
		ContentType: contentType,
	})
	return &Request{
		Tx:          tx,
		Body:        string(body),
		ContentType: contentType,
		Pre:         etag.Parse(req.Header.Get("If-Match"), req.Header.Get("If-None-Match")),
	}, nil
}

func validate(ids iri.IDs) error {
	for _, f := range []struct{ kind, id string }{
		{"group", ids.Group},
		{"policy", ids.Policy},
		{"org", ids.Org},
		{"repo", ids.Repo},
		{"branch", ids.Branch},
		{"commit", ids.Commit},
		{"lock", ids.Lock},
		{"diff", ids.Diff},
	} {
		if f.id == "" {
			continue
		}
		if err := iri.ValidateID(f.kind, f.id); err != nil {
			return err
		}
	}
	return nil
}

// RequireMedia rejects a body whose content type is not one of types.
func (r *Request) RequireMedia(types ...string) error {
	mt := rdfio.MediaType(r.ContentType)
	for _, t := range types {
		if mt == t {
			return nil
		}
	}
	return apperror.ErrUnsupportedMediaType.WithMessagef("Unsupported content type %q", r.ContentType)
}

// Respond writes g in the negotiated RDF syntax. A non-empty tag is sent as the
// ETag header. HEAD requests get headers only.
func Respond(c echo.Context, status int, g rdfio.Graph, tag string) error {
	SetETag(c, tag)
	mt := rdfio.Negotiate(c.Request().Header.Get(echo.HeaderAccept))
	if c.Request().Method == http.MethodHead {
		c.Response().Header().Set(echo.HeaderContentType, mt)
		c.Response().WriteHeader(status)
		return nil
	}
	var buf bytes.Buffer
	if err := rdfio.Encode(&buf, g, mt); err != nil {
		return apperror.NewInternal("failed to encode response", err)
	}
	return c.Blob(status, mt, buf.Bytes())
}

// SetETag sets the ETag header unless tag is empty.
func SetETag(c echo.Context, tag string) {
	if tag != "" {
		c.Response().Header().Set("ETag", etag.Header(tag))
	}
}

// Forwarded writes a store response unchanged.
func Forwarded(c echo.Context, resp *store.Response) error {
	ct := resp.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	if c.Request().Method == http.MethodHead {
		c.Response().Header().Set(echo.HeaderContentType, ct)
		c.Response().WriteHeader(http.StatusOK)
		return nil
	}
	return c.Blob(http.StatusOK, ct, resp.Body)
}
