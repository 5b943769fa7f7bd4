package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mealbook/recipes_api/internal/pkg/config"
	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	"github.com/mealbook/recipes_api/internal/recipes/repository/imagestore"
	"github.com/mealbook/recipes_api/internal/recipes/repository/userrepo"
	"github.com/mealbook/recipes_api/internal/recipes/services/authservice"
	"github.com/mealbook/recipes_api/internal/recipes/services/recipeservice"
	"github.com/mealbook/recipes_api/pkg/logger"
)

const maxImageMemory = 32 << 20

type Server struct {
	serv          *http.Server
	recipeService RecipeService
	tagService    TagService
	imageService  ImageService
	authService   AuthService
}

type RecipeService interface {
	ListRecipes(ctx context.Context, user models.User, tagFilter string) ([]models.Recipe, error)
	GetRecipe(ctx context.Context, user models.User, recipeID int64) (models.Recipe, error)
	CreateRecipe(context.Context, models.User, recipeservice.CreateRecipeRequest) (models.Recipe, error)
	UpdateRecipe(context.Context, models.User, recipeservice.UpdateRecipeRequest) (models.Recipe, error)
	DeleteRecipe(ctx context.Context, user models.User, recipeID int64) error
	Shutdown(context.Context) error
}

type TagService interface {
	ListTags(ctx context.Context, user models.User, assignedOnly string) ([]models.Tag, error)
	UpdateTag(ctx context.Context, user models.User, tagID int64, name string) (models.Tag, error)
	DeleteTag(ctx context.Context, user models.User, tagID int64) error
}

type ImageService interface {
	UploadImage(ctx context.Context, user models.User, recipeID int64,
		filename string, image io.Reader) (imagestore.DetectResult, error)
}

type AuthService interface {
	CreateUser(context.Context, authservice.CreateUserRequest) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Auth(ctx context.Context, token string) (models.User, error)
}

func New(cfg config.Server, rs RecipeService, ts TagService, is ImageService,
	authService AuthService, lg logger.Logger,
) *Server {
	var s Server

	s.recipeService = rs
	s.tagService = ts
	s.imageService = is
	s.authService = authService

	r := chi.NewRouter()
	r.Use(loggingMiddleware(lg))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/recipes", func(r chi.Router) {
				r.Get("/", s.handleListRecipes)
				r.Post("/", s.handleCreateRecipe)
				r.Get("/{id}", s.handleGetRecipe)
				r.Put("/{id}", s.handleReplaceRecipe)
				r.Patch("/{id}", s.handlePatchRecipe)
				r.Delete("/{id}", s.handleDeleteRecipe)
				r.Post("/{id}/image", s.handleUploadImage)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", s.handleListTags)
				r.Patch("/{id}", s.handlePatchTag)
				r.Delete("/{id}", s.handleDeleteTag)
			})
		})
	})

	s.serv = &http.Server{ //nolint:exhaustruct
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &s
}

func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error)

	go func() {
		if err := s.serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			close(errCh)
		}
	}()

	select {
	case <-ctx.Done():
		ctxS, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
		defer cancel()

		if err := s.Shutdown(ctxS); err != nil { //nolint:contextcheck
			return fmt.Errorf("context error: %w server error %w", ctxS.Err(), err)
		}

		if !errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("context cancelled error: %w", ctx.Err())
		}

		return nil
	case err := <-errCh:
		return fmt.Errorf("listen and serve error: %w", err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctxS, cancel := context.WithTimeout(ctx, s.serv.IdleTimeout)
	defer cancel()

	if err := s.serv.Shutdown(ctxS); err != nil {
		return fmt.Errorf("shutdown server error: %w", err)
	}

	return nil
}

// POST /auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	var b authBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	if b.Email == nil || b.Password == nil {
		handleError(w, fmt.Errorf("email and password required"), http.StatusBadRequest) //nolint:perfsprint

		return
	}

	token, err := s.authService.CreateUser(r.Context(), authservice.CreateUserRequest{
		Email:    *b.Email,
		Password: *b.Password,
	})
	if err != nil {
		if errors.Is(err, models.ErrValidation) || errors.Is(err, userrepo.ErrAlreadyExists) {
			handleError(w, fmt.Errorf("create user error: %w", err), http.StatusBadRequest)

			return
		}

		handleError(w, fmt.Errorf("create user error: %w", err), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, TokenResponse{Token: token})
}

// POST /auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	var b authBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	if b.Email == nil || b.Password == nil {
		handleError(w, fmt.Errorf("email and password required"), http.StatusBadRequest) //nolint:perfsprint

		return
	}

	token, err := s.authService.Login(r.Context(), *b.Email, *b.Password)
	if err != nil {
		handleError(w, fmt.Errorf("login error: %w", err), http.StatusUnauthorized)

		return
	}

	writeJSON(w, TokenResponse{Token: token})
}

// GET /recipes?tags=1,2.
func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	recipes, err := s.recipeService.ListRecipes(r.Context(), userFrom(r), r.URL.Query().Get("tags"))
	if err != nil {
		handleError(w, fmt.Errorf("list recipes error: %w", err), statusFromError(err))

		return
	}

	writeJSON(w, recipes)
}

// POST /recipes.
func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	var b recipeBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	if b.Title == nil || b.Description == nil || b.TimeMinutes == nil || b.Price == nil {
		handleError(w, //nolint:perfsprint
			fmt.Errorf("title, description, time_minutes and price required"), http.StatusBadRequest)

		return
	}

	req := recipeservice.CreateRecipeRequest{ //nolint:exhaustruct
		Title:       *b.Title,
		Description: *b.Description,
		TimeMinutes: *b.TimeMinutes,
		Price:       *b.Price,
		TagNames:    b.tagNames(),
	}

	if b.Link != nil {
		req.Link = *b.Link
	}

	recipe, err := s.recipeService.CreateRecipe(r.Context(), userFrom(r), req)
	if err != nil {
		handleError(w, fmt.Errorf("create recipe error: %w", err), statusFromError(err))

		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, recipe)
}

// GET /recipes/{id}.
func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	recipe, err := s.recipeService.GetRecipe(r.Context(), userFrom(r), id)
	if err != nil {
		handleError(w, fmt.Errorf("get recipe error: %w", err), statusFromError(err))

		return
	}

	writeJSON(w, recipe)
}

// PUT /recipes/{id}.
func (s *Server) handleReplaceRecipe(w http.ResponseWriter, r *http.Request) {
	s.updateRecipe(w, r, true)
}

// PATCH /recipes/{id}.
func (s *Server) handlePatchRecipe(w http.ResponseWriter, r *http.Request) {
	s.updateRecipe(w, r, false)
}

func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request, full bool) {
	w.Header().Add("Content-Type", "application/json")

	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	var b recipeBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	if full && (b.Title == nil || b.Description == nil || b.TimeMinutes == nil || b.Price == nil) {
		handleError(w, //nolint:perfsprint
			fmt.Errorf("title, description, time_minutes and price required"), http.StatusBadRequest)

		return
	}

	req := recipeservice.UpdateRecipeRequest{
		RecipeID:    id,
		Title:       b.Title,
		Description: b.Description,
		TimeMinutes: b.TimeMinutes,
		Price:       b.Price,
		Link:        b.Link,
		TagNames:    b.tagNames(),
		ReplaceTags: b.Tags != nil,
	}

	recipe, err := s.recipeService.UpdateRecipe(r.Context(), userFrom(r), req)
	if err != nil {
		handleError(w, fmt.Errorf("update recipe error: %w", err), statusFromError(err))

		return
	}

	writeJSON(w, recipe)
}

// DELETE /recipes/{id}.
func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	if err := s.recipeService.DeleteRecipe(r.Context(), userFrom(r), id); err != nil {
		handleError(w, fmt.Errorf("delete recipe error: %w", err), statusFromError(err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /recipes/{id}/image.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		handleError(w, fmt.Errorf("parse multipart form error: %w", err), http.StatusBadRequest)

		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		handleError(w, fmt.Errorf("image field error: %w", err), http.StatusBadRequest)

		return
	}
	defer file.Close()

	res, err := s.imageService.UploadImage(r.Context(), userFrom(r), id, header.Filename, file)
	if err != nil {
		code := statusFromError(err)
		if code == http.StatusInternalServerError {
			// store and detection failures are upstream errors
			code = http.StatusBadGateway
		}

		handleError(w, fmt.Errorf("upload image error: %w", err), code)

		return
	}

	writeJSON(w, res)
}

// GET /tags?assigned_only=0|1|2.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	tags, err := s.tagService.ListTags(r.Context(), userFrom(r), r.URL.Query().Get("assigned_only"))
	if err != nil {
		handleError(w, fmt.Errorf("list tags error: %w", err), statusFromError(err))

		return
	}

	writeJSON(w, tags)
}

// PATCH /tags/{id}.
func (s *Server) handlePatchTag(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	var b tagBody
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusBadRequest)

		return
	}

	tag, err := s.tagService.UpdateTag(r.Context(), userFrom(r), id, b.Name)
	if err != nil {
		handleError(w, fmt.Errorf("update tag error: %w", err), statusFromError(err))

		return
	}

	writeJSON(w, tag)
}

// DELETE /tags/{id}.
func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := pathID(r)
	if err != nil {
		handleError(w, err, http.StatusBadRequest)

		return
	}

	if err := s.tagService.DeleteTag(r.Context(), userFrom(r), id); err != nil {
		handleError(w, fmt.Errorf("delete tag error: %w", err), statusFromError(err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id error: %w", err)
	}

	return id, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)
	}
}

func handleError(w http.ResponseWriter, err error, code int) {
	w.WriteHeader(code)

	e := Error{err.Error()}

	w.Write(e.ToJSON()) //nolint:errcheck
}
