package httputil

import "github.com/gin-gonic/gin"

// IHttpHandler is one routable unit of the API surface. Root names the
// resource segment; SetRoutes attaches the handler's endpoints to the public,
// authenticated and admin groups as appropriate.
type IHttpHandler interface {
	Root() string
	SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup)
}
