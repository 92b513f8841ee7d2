package handlers

import (
	"embed"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/http"

	"github.com/nfnt/resize"
	"go.uber.org/zap"
	"goji.io"
	"goji.io/pat"

	"github.com/Brownie44l1/mlp-viz/internal/model"
	"github.com/Brownie44l1/mlp-viz/internal/service"
)

//go:embed static
var staticFiles embed.FS

type Handler struct {
	modelServer *service.Server
	logger      *zap.SugaredLogger
}

func NewHandler(modelServer *service.Server, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		modelServer: modelServer,
		logger:      logger,
	}
}

// Register installs every route on mux.
func (h *Handler) Register(mux *goji.Mux) {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux.HandleFunc(pat.Get("/health"), h.Health)
	mux.HandleFunc(pat.Post("/predict"), h.Predict)
	mux.HandleFunc(pat.Post("/predict/image"), h.PredictFromImage)
	mux.Handle(pat.Get("/static/*"), http.StripPrefix("/static", http.FileServer(http.FS(static))))
	mux.HandleFunc(pat.Get("/"), h.Index)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// Index serves the drawing page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req model.PredictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	h.respond(w, req.Pixels)
}

// preprocessImage converts an upload into the 8x8 grid the network expects:
// grayscale, dark ink mapped to 1 and white paper to 0.
func (h *Handler) preprocessImage(img image.Image) []float64 {
	targetSize := uint(h.modelServer.Metadata.ImageSize)

	resized := resize.Resize(targetSize, targetSize, img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	h.logger.Debugw("resized upload", "width", width, "height", height)

	inputData := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			// composite onto white so transparent backgrounds read as paper
			paper := float64(0xffff - a)
			gray := (float64(r)+float64(g)+float64(b))/3 + paper
			ink := 1 - gray/0xffff
			if ink < 0 {
				ink = 0
			}
			inputData[y*width+x] = ink
		}
	}

	return inputData
}

func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form (10MB max)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	h.logger.Debugw("received upload", "filename", header.Filename, "size", header.Size)

	img, format, err := image.Decode(file)
	if err != nil {
		http.Error(w, "Invalid image format. Supported: JPEG, PNG", http.StatusBadRequest)
		return
	}

	h.logger.Debugw("decoded upload", "format", format, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	h.respond(w, h.preprocessImage(img))
}

func (h *Handler) respond(w http.ResponseWriter, pixels []float64) {
	result, err := h.modelServer.Predict(pixels)
	if err != nil {
		var shapeErr *model.ShapeError
		if errors.As(err, &shapeErr) {
			http.Error(w, shapeErr.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Errorw("prediction failed", "error", err)
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
