// Package api provides the REST API server for msq2midi
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/james-see/msq2midi/pkg/config"
	"github.com/james-see/msq2midi/pkg/converter"
	"github.com/james-see/msq2midi/pkg/converter/devices"
	"github.com/james-see/msq2midi/pkg/converter/devices/q1"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title MSQ2MIDI API
// @version 1.0
// @description API for converting between Standard MIDI Files and Roland MSQ-100 Q1 SysEx dumps
// @host localhost:8080
// @BasePath /api/v1

// maxUpload bounds uploaded files; a full MSQ-100 dump is well under this
const maxUpload = 8 << 20

// StartServer starts the API server on the specified port
func StartServer(port int, cfg *config.Config) error {
	return NewRouter(cfg).Run(fmt.Sprintf(":%d", port))
}

// NewRouter builds the gin engine. cfg supplies the defaults that query
// parameters override; nil means built-in defaults.
func NewRouter(cfg *config.Config) *gin.Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	h := &handler{cfg: cfg}

	r := gin.Default()
	r.MaxMultipartMemory = maxUpload

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/convert/midi2q1", h.handleMIDIToQ1)
		v1.POST("/convert/q12midi", h.handleQ1ToMIDI)
		v1.POST("/convert/midi2syx", h.handleMIDIToSyx)
		v1.POST("/convert/syx2midi", h.handleSyxToMIDI)
		v1.POST("/convert/q12syx", h.handleQ1ToSyx)
		v1.POST("/convert/syx2q1", h.handleSyxToQ1)
		v1.POST("/inspect", h.handleInspect)
		v1.GET("/formats", listFormats)
		v1.GET("/devices", listDevices)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

type handler struct {
	cfg *config.Config
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "msq2midi",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{"midi", "q1", "syx"},
		"conversions": converter.GetSupportedConversions(),
	})
}

// listDevices godoc
// @Summary List supported devices
// @Description Returns a list of supported sequencers
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]map[string]string
// @Router /api/v1/devices [get]
func listDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"devices": []map[string]string{
			{"id": "msq100", "name": "Roland MSQ-100", "description": "MIDI sequencer, Q1 bulk dump format"},
		},
	})
}

// handleMIDIToQ1 godoc
// @Summary Convert MIDI to .q1
// @Description Upload a MIDI file and receive a raw Q1 dump
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "MIDI file to convert"
// @Param filter query string false "Event filter, e.g. pax14"
// @Param track query int false "Source track, 0 merges all"
// @Param truncate query bool false "Truncate instead of failing when the dump is full"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 413 {object} map[string]string
// @Router /api/v1/convert/midi2q1 [post]
func (h *handler) handleMIDIToQ1(c *gin.Context) {
	h.handleConversion(c, converter.FormatMIDI, converter.FormatQ1)
}

// handleQ1ToMIDI godoc
// @Summary Convert .q1 to MIDI
// @Description Upload a raw Q1 dump and receive a MIDI file
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true ".q1 file to convert"
// @Param timebase query int false "Output ticks per quarter note (96-960)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/convert/q12midi [post]
func (h *handler) handleQ1ToMIDI(c *gin.Context) {
	h.handleConversion(c, converter.FormatQ1, converter.FormatMIDI)
}

// handleMIDIToSyx godoc
// @Summary Convert MIDI to .syx
// @Description Upload a MIDI file and receive a SysEx bulk dump
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "MIDI file to convert"
// @Param filter query string false "Event filter, e.g. pax14"
// @Param track query int false "Source track, 0 merges all"
// @Param truncate query bool false "Truncate instead of failing when the dump is full"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 413 {object} map[string]string
// @Router /api/v1/convert/midi2syx [post]
func (h *handler) handleMIDIToSyx(c *gin.Context) {
	h.handleConversion(c, converter.FormatMIDI, converter.FormatSyx)
}

// handleSyxToMIDI godoc
// @Summary Convert .syx to MIDI
// @Description Upload a SysEx bulk dump and receive a MIDI file
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true ".syx file to convert"
// @Param timebase query int false "Output ticks per quarter note (96-960)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/convert/syx2midi [post]
func (h *handler) handleSyxToMIDI(c *gin.Context) {
	h.handleConversion(c, converter.FormatSyx, converter.FormatMIDI)
}

// handleQ1ToSyx godoc
// @Summary Convert .q1 to .syx
// @Description Upload a raw Q1 dump and receive it as SysEx messages
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true ".q1 file to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/convert/q12syx [post]
func (h *handler) handleQ1ToSyx(c *gin.Context) {
	h.handleConversion(c, converter.FormatQ1, converter.FormatSyx)
}

// handleSyxToQ1 godoc
// @Summary Convert .syx to .q1
// @Description Upload a SysEx bulk dump and receive the raw Q1 data
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true ".syx file to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/convert/syx2q1 [post]
func (h *handler) handleSyxToQ1(c *gin.Context) {
	h.handleConversion(c, converter.FormatSyx, converter.FormatQ1)
}

// handleInspect godoc
// @Summary Inspect a file
// @Description Upload a MIDI, .q1 or .syx file and receive its block layout and event counts
// @Tags info
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to inspect"
// @Success 200 {object} converter.Info
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/inspect [post]
func (h *handler) handleInspect(c *gin.Context) {
	data, name, ok := readUpload(c)
	if !ok {
		return
	}

	conv, err := h.converter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format := converter.DetectFormat(name)
	if format == converter.FormatUnknown {
		format = converter.DetectFormatFromContent(data)
	}

	info, err := conv.Inspect(data, format)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func readUpload(c *gin.Context) ([]byte, string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUpload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, "", false
	}
	return data, header.Filename, true
}

// converter builds a converter from the config defaults and the request's
// query parameters
func (h *handler) converter(c *gin.Context) (*converter.Converter, error) {
	device := devices.NewMSQ100()
	device.Filter = h.cfg.Filter
	device.Truncate = h.cfg.Truncate
	if h.cfg.Name != "" {
		device.SequenceName = h.cfg.Name
	}

	if spec, ok := c.GetQuery("filter"); ok {
		f, err := converter.ParseFilter(spec)
		if err != nil {
			return nil, err
		}
		device.Filter = f
	}
	if v, ok := c.GetQuery("truncate"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid truncate %q", v)
		}
		device.Truncate = b
	}
	if v, ok := c.GetQuery("name"); ok && v != "" {
		device.SequenceName = v
	}

	conv := converter.New(device)
	midi := conv.MIDI()
	midi.Track = h.cfg.Track
	midi.Timebase = converter.NormalizeTimebase(h.cfg.Timebase)

	if v, ok := c.GetQuery("track"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid track %q", v)
		}
		midi.Track = n
	}
	if v, ok := c.GetQuery("timebase"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid timebase %q", v)
		}
		midi.Timebase = converter.NormalizeTimebase(n)
	}
	return conv, nil
}

func (h *handler) handleConversion(c *gin.Context, from, to converter.Format) {
	data, name, ok := readUpload(c)
	if !ok {
		return
	}

	conv, err := h.converter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := conv.Convert(data, from, to)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	outputExt := "." + string(to)
	if to == converter.FormatMIDI {
		outputExt = ".mid"
	}
	outputName := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if outputName == "" || outputName == "." {
		outputName = "converted"
	}
	outputName += outputExt

	// Set content type and headers
	contentType := "application/octet-stream"
	if to == converter.FormatMIDI {
		contentType = "audio/midi"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Data(http.StatusOK, contentType, result)
}

// errorStatus maps codec error kinds onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, q1.ErrCapacity):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, q1.ErrFormat), errors.Is(err, q1.ErrChecksum), errors.Is(err, q1.ErrSequence),
		errors.Is(err, converter.ErrFormat):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
