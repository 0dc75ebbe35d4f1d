package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mini-ai-studio/studio-api/internal/api/metrics"
	"github.com/mini-ai-studio/studio-api/internal/core/domain"
	"github.com/mini-ai-studio/studio-api/internal/core/ports"
)

const uploadCreatedMessage = "Generation created successfully"

type GenerationHandler struct {
	generations ports.GenerationService
}

func NewGenerationHandler(generations ports.GenerationService) *GenerationHandler {
	return &GenerationHandler{generations: generations}
}

// Upload accepts an image and a prompt and returns the generated result.
//
// @Summary      Create a generation
// @Description  Stores the image, runs the simulated generation and records the result.
// @Tags         generations
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        image   formData  file    true  "PNG or JPEG image, at most 5 MiB"
// @Param        prompt  formData  string  true  "Text prompt"
// @Success      201     {object}  uploadResponse
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Failure      413     {object}  errorResponse
// @Failure      415     {object}  errorResponse
// @Failure      500     {object}  errorResponse
// @Router       /generations/upload [post]
func (h *GenerationHandler) Upload(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	start := time.Now()
	view, err := h.upload(c, userID)
	if err != nil {
		metrics.GenerationFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		metrics.GenerationDuration.WithLabelValues("failure").Observe(time.Since(start).Seconds())
		return err
	}

	metrics.GenerationsCreatedTotal.Inc()
	metrics.GenerationDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	return c.JSON(http.StatusCreated, uploadResponse{Message: uploadCreatedMessage, Generation: *view})
}

func (h *GenerationHandler) upload(c echo.Context, userID string) (*ports.GenerationView, error) {
	in := ports.UploadInput{UserID: userID}

	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		in.Filename = fh.Filename
		in.ContentType = fh.Header.Get(echo.HeaderContentType)
		in.Size = fh.Size
		in.File = f
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// Left nil; the service reports the missing input.
	case errors.Is(err, echo.ErrStatusRequestEntityTooLarge):
		return nil, domain.ErrFileTooLarge
	default:
		return nil, fmt.Errorf("%w: malformed multipart body", domain.ErrInvalidInput)
	}
	in.Prompt = c.FormValue("prompt")

	return h.generations.Upload(c.Request().Context(), in)
}

// Recent lists the caller's five newest generations.
//
// @Summary      Recent generations
// @Tags         generations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   ports.GenerationView
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /generations/recent [get]
func (h *GenerationHandler) Recent(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	items, err := h.generations.ListRecent(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	metrics.RecentQueriesTotal.Inc()

	if items == nil {
		items = []ports.GenerationView{}
	}
	return c.JSON(http.StatusOK, items)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingUploadInput), errors.Is(err, domain.ErrInvalidInput):
		return "missing_input"
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		return "unsupported_media_type"
	case errors.Is(err, domain.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, domain.ErrSimulatedFailure):
		return "simulated_failure"
	case errors.Is(err, domain.ErrGenerationTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
