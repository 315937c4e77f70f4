package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"clipscribe/internal/config"
	"clipscribe/internal/identity"
	"clipscribe/internal/models"
	"clipscribe/internal/service/accounts"
	"clipscribe/internal/service/media"
	"clipscribe/internal/session"
)

// Handler wires HTTP routes to the account and media services behind the
// session gate.
type Handler struct {
	accounts *accounts.Service
	media    *media.Service
	sessions *session.Manager
	store    config.ObjectStoreConfig
}

// NewHandler constructs a Handler instance.
func NewHandler(accountsSvc *accounts.Service, mediaSvc *media.Service, sessions *session.Manager, storeCfg config.ObjectStoreConfig) *Handler {
	return &Handler{
		accounts: accountsSvc,
		media:    mediaSvc,
		sessions: sessions,
		store:    storeCfg,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.sessions.RequirePage("/signin"), h.indexPage)
	router.GET("/home", h.indexPage)
	router.GET("/signin", h.signinPage)
	router.POST("/signin", h.signIn)
	router.GET("/signup", h.signupPage)
	router.POST("/signup", h.signUp)
	router.GET("/logout", h.logout)

	router.POST("/upload", h.sessions.RequireAPI(), h.upload)

	api := router.Group("/api")
	api.POST("/session-logout", h.sessionLogout)
	api.GET("/protected", h.protected)
	api.GET("/videos", h.sessions.RequireAPI(), h.listVideos)
	api.POST("/analyze", h.sessions.RequireAPI(), h.analyze)
}

func (h *Handler) indexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{})
}

func (h *Handler) signinPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signin.html", gin.H{})
}

func (h *Handler) signupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rec, err := h.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrMissingCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		case errors.Is(err, identity.ErrInvalidCredentials):
			// One message for every provider rejection: registered and
			// unregistered emails must be indistinguishable here.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "identity service unavailable"})
		}
		return
	}
	if _, err := h.sessions.Issue(c, *rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sign-In successful", "redirect": "/"})
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.accounts.SignUp(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		var provErr *identity.ProviderError
		switch {
		case errors.Is(err, accounts.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": accounts.ErrMissingFields.Error()})
		case errors.As(err, &provErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": provErr.Message})
		case errors.Is(err, accounts.ErrProfileWrite):
			c.JSON(http.StatusInternalServerError, gin.H{"error": accounts.ErrProfileWrite.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "identity service unavailable"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User %s created successfully", user.Name)})
}

func (h *Handler) upload(c *gin.Context) {
	rec, _ := session.RecordFromContext(c)
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer f.Close()

	result, err := h.media.HandleUpload(c.Request.Context(), f, file.Filename, rec.Email)
	if err != nil {
		var trErr *media.TranscriptionError
		switch {
		case errors.Is(err, media.ErrUnsafeFilename):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		case errors.Is(err, media.ErrLocalWrite):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "local write failed"})
		case errors.Is(err, media.ErrStorageUpload):
			c.JSON(http.StatusBadGateway, gin.H{"error": "storage upload failed"})
		case errors.As(err, &trErr):
			// The asset is durably stored; tell the caller which stage
			// failed and where the file landed.
			c.JSON(http.StatusBadGateway, gin.H{"error": "transcription failed", "file_url": trErr.FileURL})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": result.Transcript, "file_url": result.FileURL})
}

func (h *Handler) listVideos(c *gin.Context) {
	rec, _ := session.RecordFromContext(c)
	videos, err := h.media.ListVideos(c.Request.Context(), rec.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list videos"})
		return
	}
	if len(videos) == 0 {
		c.JSON(http.StatusOK, gin.H{"videos": make([]*models.Video, 0)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

type analyzeRequest struct {
	VideoURL string `json:"video_url"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VideoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_url is required"})
		return
	}
	transcript, err := h.media.AnalyzeURL(c.Request.Context(), h.store.Bucket, h.store.PublicDomain, req.VideoURL)
	if err != nil {
		var trErr *media.TranscriptionError
		switch {
		case errors.Is(err, media.ErrUnknownAsset):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown asset url"})
		case errors.As(err, &trErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": "transcription failed"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "storage fetch failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": transcript})
}

func (h *Handler) sessionLogout(c *gin.Context) {
	h.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"message": "Session cleared"})
}

func (h *Handler) protected(c *gin.Context) {
	rec, ok := h.sessions.Current(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "You are authorized",
		"user":    gin.H{"email": rec.Email},
	})
}

func (h *Handler) logout(c *gin.Context) {
	h.sessions.Clear(c)
	c.Redirect(http.StatusFound, "/signin")
}
