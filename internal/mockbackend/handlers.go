package mockbackend

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	bytefmt "github.com/labstack/gommon/bytes"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

// credentialsForm binds from JSON bodies and multipart forms alike.
type credentialsForm struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Filename string `json:"filename" form:"filename"`
}

// diagnoseFields are the image parts of a /diagnose request, in order.
var diagnoseFields = []string{"classification", "tilt", "backup"}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{"error": msg})
}

func internalError(c echo.Context, err error) error {
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"error":   "Internal server error",
		"details": err.Error(),
	})
}

func bindCredentials(c echo.Context) (credentialsForm, bool) {
	var form credentialsForm
	if err := c.Bind(&form); err != nil {
		return form, false
	}
	return form, form.Username != "" && form.Password != ""
}

// authError returns the backend's message for a failed credential check, or
// "" when the credentials are valid. Login hides whether the user exists;
// other routes do not.
func (s *Server) authError(form credentialsForm, hideMissing bool) string {
	err := s.store.Authenticate(form.Username, form.Password)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserNotFound) && hideMissing:
		return ErrInvalidCredentials.Error()
	default:
		return err.Error()
	}
}

func (s *Server) signup(c echo.Context) error {
	form, ok := bindCredentials(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "Username and password required")
	}

	if err := s.store.CreateUser(form.Username, form.Password); err != nil {
		if errors.Is(err, ErrUserExists) {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		return internalError(c, err)
	}

	s.log.Info("signup successful", logger.String("username", form.Username))
	return c.JSON(http.StatusOK, map[string]any{"message": "Signup successful"})
}

func (s *Server) login(c echo.Context) error {
	form, ok := bindCredentials(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "Username and password required")
	}
	if msg := s.authError(form, true); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	s.log.Info("login successful", logger.String("username", form.Username))
	return c.JSON(http.StatusOK, map[string]any{
		"message":  "Login successful",
		"username": form.Username,
	})
}

func (s *Server) upload(c echo.Context) error {
	form, ok := bindCredentials(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "Username and password required")
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return fail(c, http.StatusBadRequest, "No image file provided")
	}
	if msg := s.authError(form, false); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	data, status, msg := s.readImage(fh)
	if msg != "" {
		return fail(c, status, msg)
	}

	filename := fmt.Sprintf("%s/%d_%s", form.Username, time.Now().UnixMilli(), fh.Filename)
	rec := ImageRecord{
		Filename:    filename,
		URL:         s.publicURL(c) + "/files/" + filename,
		UploadedAt:  time.Now().UTC(),
		ContentType: fh.Header.Get(echo.HeaderContentType),
	}
	if err := s.store.AddImage(form.Username, rec, data); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	s.log.Info("image uploaded",
		logger.String("username", form.Username),
		logger.String("filename", filename),
		logger.String("size", bytefmt.Format(int64(len(data)))))
	return c.JSON(http.StatusOK, map[string]any{
		"message":  "Upload successful",
		"imageUrl": rec.URL,
		"filename": filename,
	})
}

func (s *Server) images(c echo.Context) error {
	form, ok := bindCredentials(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "Username and password required")
	}
	if msg := s.authError(form, false); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	images := s.store.Images(form.Username)
	s.log.Info("images loaded",
		logger.String("username", form.Username),
		logger.Int("count", len(images)))
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Images loaded successfully",
		"images":  images,
	})
}

func (s *Server) process(c echo.Context) error {
	form, ok := bindCredentials(c)
	if !ok || form.Filename == "" {
		return fail(c, http.StatusBadRequest, "Username, password, and filename required")
	}
	if msg := s.authError(form, false); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	results := map[string]any{
		"treeType":     "Example Tree",
		"health":       "Good",
		"estimatedAge": "10 years",
	}
	s.store.MarkProcessed(form.Username, form.Filename)
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Processing complete",
		"results": results,
	})
}

func (s *Server) diagnose(c echo.Context) error {
	form, ok := bindCredentials(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "Username and password required")
	}

	method, err := strconv.Atoi(c.FormValue("detectionMethod"))
	if err != nil || method < 1 || method > 3 {
		return fail(c, http.StatusBadRequest, "Detection method must be 1, 2 or 3")
	}
	useCutout, _ := strconv.ParseBool(c.FormValue("useCutout"))

	in := DiagnoseInput{
		Username:        form.Username,
		UseCutout:       useCutout,
		DetectionMethod: method,
		ImageSizes:      make(map[string]int64, len(diagnoseFields)),
	}
	for _, field := range diagnoseFields {
		fh, err := c.FormFile(field)
		if err != nil {
			return fail(c, http.StatusBadRequest, "Missing image: "+field)
		}
		if _, status, msg := s.readImage(fh); msg != "" {
			return fail(c, status, msg)
		}
		in.ImageSizes[field] = fh.Size
	}

	if msg := s.authError(form, false); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	result, err := s.cfg.Analyze(c.Request().Context(), in)
	if err != nil {
		s.log.Error("analysis failed", logger.String("username", form.Username), logger.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error":   "Analysis failed",
			"details": err.Error(),
		})
	}

	s.log.Info("diagnosis complete",
		logger.String("username", form.Username),
		logger.Int("detection_method", method),
		logger.String("risk_category", result.RiskCategory))
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Diagnosis complete",
		"results": result,
	})
}

func (s *Server) file(c echo.Context) error {
	name := c.Param("*")
	rec, data, ok := s.store.Image(name)
	if !ok {
		return fail(c, http.StatusNotFound, "Image not found")
	}
	contentType := rec.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return c.Blob(http.StatusOK, contentType, data)
}

// readImage applies the backend's upload filter: image types only, bounded
// size. A non-empty message means the part is rejected.
func (s *Server) readImage(fh *multipart.FileHeader) ([]byte, int, string) {
	if !strings.HasPrefix(fh.Header.Get(echo.HeaderContentType), "image/") {
		return nil, http.StatusBadRequest, "Only image files allowed"
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, "File too large"
	}
	f, err := fh.Open()
	if err != nil {
		return nil, http.StatusInternalServerError, "Internal server error"
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, http.StatusInternalServerError, "Internal server error"
	}
	return data, 0, ""
}

func (s *Server) publicURL(c echo.Context) string {
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL
	}
	return c.Scheme() + "://" + c.Request().Host
}
