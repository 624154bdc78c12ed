package auth

import (
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// Middleware attaches the principal to the request context. Requests without an
// Authorization header stay anonymous; a bad header or token is rejected by onError.
func Middleware(parser TokenParser, onError func(c *gin.Context, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, err := BearerToken(header)
		if err != nil {
			onError(c, err)
			c.Abort()
			return
		}

		principal, err := parser.Parse(token)
		if err != nil {
			onError(c, err)
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// FromContext returns the request principal, or nil when anonymous
func FromContext(c *gin.Context) *Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}

// WithPrincipal sets the principal directly, for tests and internal callers
func WithPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
}
