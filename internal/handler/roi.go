package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/guaupro/landing/internal/handler/dto"
	"github.com/guaupro/landing/internal/metrics"
	"github.com/guaupro/landing/internal/roi"
)

// ROI input field names, shared by the JSON body and the query string.
const (
	paramMinutesUpdates  = "minutes_updates"
	paramMinutesBookings = "minutes_bookings"
	paramMinutesPayments = "minutes_payments"
	paramHourlyRate      = "hourly_rate"
)

// ROIHandler serves the savings calculator.
type ROIHandler struct {
	engine  *roi.Engine
	metrics metrics.Recorder
}

// NewROIHandler creates a new ROIHandler.
func NewROIHandler(engine *roi.Engine, recorder metrics.Recorder) *ROIHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ROIHandler{engine: engine, metrics: recorder}
}

// Compute handles GET and POST /api/v1/roi.
// Inputs left out take the calculator defaults.
func (h *ROIHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var (
		in    roi.Inputs
		field string
		err   error
	)
	if r.Method == http.MethodPost {
		in, field, err = inputsFromBody(r.Body)
	} else {
		in, field, err = inputsFromQuery(r)
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return
		}
		writeFieldError(w, http.StatusBadRequest, "INVALID_INPUT", "Inputs must be finite numbers", field)
		return
	}

	writeJSON(w, http.StatusOK, h.compute(in))
}

// Defaults handles GET /api/v1/roi/defaults.
func (h *ROIHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.ROIDefaultsResponse{
		Inputs:  roi.DefaultInputs,
		Results: h.compute(roi.DefaultInputs),
	})
}

func (h *ROIHandler) compute(in roi.Inputs) roi.Results {
	res, cached := h.engine.Compute(in)
	h.metrics.IncROIComputed(cached)
	return res
}

// inputsFromBody decodes a JSON object of numbers over the defaults.
func inputsFromBody(body io.Reader) (roi.Inputs, string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return roi.Inputs{}, "", err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return roi.DefaultInputs, "", nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return roi.Inputs{}, "", err
	}

	in := roi.DefaultInputs
	for _, target := range inputTargets(&in) {
		value, ok := fields[target.name]
		if !ok || string(value) == "null" {
			continue
		}
		var n float64
		if err := json.Unmarshal(value, &n); err != nil {
			return roi.Inputs{}, target.name, fmt.Errorf("%s: %w", target.name, err)
		}
		*target.value = n
	}
	return in, "", nil
}

// inputsFromQuery parses the query string over the defaults.
func inputsFromQuery(r *http.Request) (roi.Inputs, string, error) {
	query := r.URL.Query()
	in := roi.DefaultInputs
	for _, target := range inputTargets(&in) {
		value := query.Get(target.name)
		if value == "" {
			continue
		}
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return roi.Inputs{}, target.name, fmt.Errorf("%s: %w", target.name, err)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return roi.Inputs{}, target.name, fmt.Errorf("%s: not a finite number", target.name)
		}
		*target.value = n
	}
	return in, "", nil
}

type inputTarget struct {
	name  string
	value *float64
}

func inputTargets(in *roi.Inputs) []inputTarget {
	return []inputTarget{
		{paramMinutesUpdates, &in.MinutesUpdates},
		{paramMinutesBookings, &in.MinutesBookings},
		{paramMinutesPayments, &in.MinutesPayments},
		{paramHourlyRate, &in.HourlyRate},
	}
}
