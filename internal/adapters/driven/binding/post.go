package binding

import (
	"github.com/philiph/saml-trust/internal/core/domain"
	"github.com/philiph/saml-trust/internal/core/ports"
)

// PostBinder encodes AuthnRequests for the HTTP-POST binding: a
// base64-encoded request in an auto-submitting HTML form.
type PostBinder struct{}

// NewPostBinder creates a POST binder.
func NewPostBinder() *PostBinder {
	return &PostBinder{}
}

// Binding reports the binding this implementation serves.
func (b *PostBinder) Binding() domain.Binding { return domain.BindingPost }

// Bind encodes the request as an HTML form document posting to the
// request's destination.
func (b *PostBinder) Bind(req *domain.AuthnRequest, relayState string) (*domain.BoundRequest, error) {
	authReq := toSAMLRequest(req)
	return &domain.BoundRequest{
		Binding: domain.BindingPost,
		Body:    authReq.Post(relayState),
	}, nil
}

// Ensure PostBinder implements ports.RequestBinder
var _ ports.RequestBinder = (*PostBinder)(nil)
