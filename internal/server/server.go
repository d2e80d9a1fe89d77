// Package server hosts the document store and procedure gateway that
// taskdeck clients talk to.
package server

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/dori/taskdeck/internal/docstore"
	"github.com/dori/taskdeck/internal/rpc"
	"github.com/gin-gonic/gin"
)

// AdminRole may write shared collections and manage users
const AdminRole = "admin"

// Options configures a Server
type Options struct {
	Store  docstore.Client
	Auth   *Auth
	Mailer Mailer
	Logger *log.Logger
}

// Server routes HTTP and websocket traffic onto a document store
type Server struct {
	store    docstore.Client
	auth     *Auth
	registry *rpc.Registry
	logger   *log.Logger
	engine   *gin.Engine
}

// New creates a server and registers its procedures
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Mailer == nil {
		opts.Mailer = LogMailer{Logger: opts.Logger}
	}

	s := &Server{
		store:    opts.Store,
		auth:     opts.Auth,
		registry: NewRegistry(opts.Store, opts.Mailer, opts.Logger),
		logger:   opts.Logger,
	}
	s.engine = s.routes()
	return s
}

// NewRegistry returns the gateway procedures bound to store. The server
// serves it over HTTP; local clients call it in-process.
func NewRegistry(store docstore.Client, mailer Mailer, logger *log.Logger) *rpc.Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if mailer == nil {
		mailer = LogMailer{Logger: logger}
	}
	r := rpc.NewRegistry()
	registerProcedures(r, store, mailer, logger)
	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Registry exposes the procedures for in-process callers
func (s *Server) Registry() *rpc.Registry {
	return s.registry
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.logger.Writer()), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.Use(s.auth.middleware())
	{
		v1.GET("/docs/*path", s.listDocs)
		v1.PUT("/docs/*path", s.writeDoc)
		v1.DELETE("/docs/*path", s.deleteDoc)
		v1.GET("/watch", s.watch)
		v1.POST("/rpc/:name", s.call)
	}
	return r
}

// canRead reports whether p may read collection. Shared collections are
// readable by everyone; per-user trees only by their owner and admins.
func canRead(p rpc.Principal, collection string) bool {
	segs := strings.Split(collection, "/")
	if len(segs) == 1 {
		return true
	}
	return segs[0] == "users" && (segs[1] == p.UserID || p.HasRole(AdminRole))
}

// canWrite reports whether p may modify documents in collection
func canWrite(p rpc.Principal, collection string) bool {
	if !strings.Contains(collection, "/") {
		return p.HasRole(AdminRole)
	}
	return canRead(p, collection)
}

func splitDocPath(path string) (collection, id string) {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func (s *Server) listDocs(c *gin.Context) {
	collection := strings.Trim(c.Param("path"), "/")
	if !docstore.ValidCollection(collection) {
		abortWith(c, rpc.Errorf(rpc.CodeInvalidArgument, "%q is not a collection", collection))
		return
	}
	if !canRead(principalOf(c), collection) {
		abortWith(c, rpc.Errorf(rpc.CodePermissionDenied, "cannot read %s", collection))
		return
	}

	docs, err := s.store.List(c.Request.Context(), collection)
	if err != nil {
		s.logger.Printf("list %s: %v", collection, err)
		abortWith(c, rpc.Errorf(rpc.CodeUnavailable, "failed to read %s", collection))
		return
	}
	c.JSON(http.StatusOK, docstore.ListResponse{Documents: docs})
}

func (s *Server) writeDoc(c *gin.Context) {
	collection, id := splitDocPath(c.Param("path"))
	if !docstore.ValidCollection(collection) || !docstore.ValidID(id) {
		abortWith(c, rpc.Errorf(rpc.CodeInvalidArgument, "invalid document path"))
		return
	}
	if !canWrite(principalOf(c), collection) {
		abortWith(c, rpc.Errorf(rpc.CodePermissionDenied, "cannot write %s", collection))
		return
	}

	var record map[string]any
	if err := c.ShouldBindJSON(&record); err != nil {
		abortWith(c, rpc.Errorf(rpc.CodeInvalidArgument, "body must be a JSON object"))
		return
	}
	if err := s.store.Write(c.Request.Context(), collection, id, record); err != nil {
		s.logger.Printf("write %s/%s: %v", collection, id, err)
		abortWith(c, rpc.Errorf(rpc.CodeUnavailable, "failed to write document"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteDoc(c *gin.Context) {
	collection, id := splitDocPath(c.Param("path"))
	if !docstore.ValidCollection(collection) || !docstore.ValidID(id) {
		abortWith(c, rpc.Errorf(rpc.CodeInvalidArgument, "invalid document path"))
		return
	}
	if !canWrite(principalOf(c), collection) {
		abortWith(c, rpc.Errorf(rpc.CodePermissionDenied, "cannot write %s", collection))
		return
	}
	if err := s.store.Delete(c.Request.Context(), collection, id); err != nil {
		s.logger.Printf("delete %s/%s: %v", collection, id, err)
		abortWith(c, rpc.Errorf(rpc.CodeUnavailable, "failed to delete document"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) call(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		abortWith(c, rpc.Errorf(rpc.CodeInvalidArgument, "failed to read body"))
		return
	}

	ctx := rpc.WithPrincipal(c.Request.Context(), principalOf(c))
	result, err := s.registry.Dispatch(ctx, c.Param("name"), body)
	if err != nil {
		if rpc.CodeOf(err) == rpc.CodeInternal {
			s.logger.Printf("rpc %s: %v", c.Param("name"), err)
		}
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
