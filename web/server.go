// Package web serves the card as an HTML page.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/korjavin/backyardcard/card"
	"github.com/korjavin/backyardcard/flow"
	"github.com/korjavin/backyardcard/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const visitorKey = "visitorID"

// SessionStore loads and saves visitor sessions
type SessionStore interface {
	LoadSession(ctx context.Context, id string) (*models.Session, error)
	SaveSession(ctx context.Context, id string, s *models.Session) error
	Ping(ctx context.Context) error
}

// Options configures the HTTP layer
type Options struct {
	Addr           string
	AllowedOrigins []string
	CookieName     string
	SecureCookie   bool
	TotalQuestions int
}

// Server renders screens for browser visitors
type Server struct {
	opts     Options
	engine   *gin.Engine
	ctrl     *flow.Controller
	store    SessionStore
	signer   *VisitorSigner
	card     *card.Card
	noteHTML template.HTML
	locks    *visitorLocks
}

// NewServer wires routes and templates
func NewServer(opts Options, ctrl *flow.Controller, store SessionStore, c *card.Card, signer *VisitorSigner) (*Server, error) {
	noteHTML, err := c.NoteHTML()
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"lines": func(s string) []string { return strings.Split(s, "\n") },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:     opts,
		ctrl:     ctrl,
		store:    store,
		signer:   signer,
		card:     c,
		noteHTML: noteHTML,
		locks:    newVisitorLocks(),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(tmpl)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", s.handleHealth)

	pages := r.Group("/", s.visitorMiddleware())
	{
		pages.GET("/", s.handlePage)
		pages.POST("/action", s.handleAction)
	}

	s.engine = r
	return s, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting web server on %s", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("Shutting down web server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) visitorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(s.opts.CookieName); err == nil && token != "" {
			id, err := s.signer.Verify(token)
			if err == nil {
				c.Set(visitorKey, id)
				c.Next()
				return
			}
			log.Debug("Discarding visitor cookie", "err", err)
		}

		id, token, err := s.signer.NewVisitor()
		if err != nil {
			log.Error("Could not create visitor", "err", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		log.Info("New visitor", "id", id, "ip", c.ClientIP())
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(s.opts.CookieName, token, int(visitorTokenTTL.Seconds()), "/", "", s.opts.SecureCookie, true)
		c.Set(visitorKey, id)
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePage(c *gin.Context) {
	s.run(c, flow.Action{Kind: flow.ActionView})
}

func (s *Server) handleAction(c *gin.Context) {
	option, err := strconv.Atoi(c.PostForm("option"))
	if err != nil {
		option = -1
	}
	// q ties an answer to the question it was shown with
	question, err := strconv.Atoi(c.PostForm("q"))
	if err != nil {
		question = -1
	}
	s.run(c, flow.ParseAction(c.PostForm("action"), question, option))
}

func (s *Server) run(c *gin.Context, a flow.Action) {
	ctx := c.Request.Context()
	id := c.GetString(visitorKey)

	unlock := s.locks.lock(id)
	defer unlock()

	var notices []string
	sess, err := s.store.LoadSession(ctx, id)
	if err != nil {
		log.Error("Error loading session", "visitor", id, "err", err)
		sess = models.NewSession(s.opts.TotalQuestions)
		notices = append(notices, "We couldn't load your progress, so we're starting fresh.")
	}

	view := s.ctrl.Handle(ctx, id, sess, a)
	view.Notices = append(notices, view.Notices...)

	if err := s.store.SaveSession(ctx, id, sess); err != nil {
		log.Error("Error saving session", "visitor", id, "err", err)
	}

	s.render(c, view)
}

type pageData struct {
	Card     *card.Card
	View     flow.View
	NoteHTML template.HTML
}

func (s *Server) render(c *gin.Context, v flow.View) {
	var name string
	switch v.Screen {
	case models.ScreenLanding:
		name = "landing.html"
	case models.ScreenCritterGame:
		name = "game.html"
	case models.ScreenRevealGlass:
		name = "reveal.html"
	case models.ScreenGiftCard:
		name = "gift.html"
	case models.ScreenMessage:
		name = "message.html"
	default:
		name = "landing.html"
	}
	c.HTML(http.StatusOK, name, pageData{Card: s.card, View: v, NoteHTML: s.noteHTML})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

// visitorLocks serializes requests of one visitor
type visitorLocks struct {
	mu    sync.Mutex
	locks map[string]*visitorLock
}

type visitorLock struct {
	sync.Mutex
	refs int
}

func newVisitorLocks() *visitorLocks {
	return &visitorLocks{locks: make(map[string]*visitorLock)}
}

func (v *visitorLocks) lock(id string) func() {
	v.mu.Lock()
	l, ok := v.locks[id]
	if !ok {
		l = &visitorLock{}
		v.locks[id] = l
	}
	l.refs++
	v.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		v.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(v.locks, id)
		}
		v.mu.Unlock()
	}
}
