package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Unify-India/ekaant-sub000/internal/allocation"
	"github.com/Unify-India/ekaant-sub000/internal/config"
	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/idempotency"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	cfg    *config.Config
	engine *allocation.Engine
	idemp  *idempotency.Idempotency
	logger observability.Logger
}

func NewHandlers(cfg *config.Config, engine *allocation.Engine, idemp *idempotency.Idempotency, logger observability.Logger) *Handlers {
	return &Handlers{cfg: cfg, engine: engine, idemp: idemp, logger: logger}
}

type seatRequirementsBody struct {
	IsAC bool `json:"is_ac"`
}

type seatResponse struct {
	ID         string `json:"id"`
	SeatNumber string `json:"seat_number"`
	IsAC       bool   `json:"is_ac"`
	HasPower   bool   `json:"has_power"`
	Status     string `json:"status"`
}

type slotTypeResponse struct {
	ID           string `json:"id"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	DurationType string `json:"duration_type"`
	IsPeak       bool   `json:"is_peak"`
}

type pricingResponse struct {
	DurationType string  `json:"duration_type"`
	SeatCategory string  `json:"seat_category"`
	BasePrice    float64 `json:"base_price"`
}

type bookingResponse struct {
	ID                  string `json:"id"`
	UserID              string `json:"user_id"`
	LibraryID           string `json:"library_id"`
	SeatID              string `json:"seat_id,omitempty"`
	SeatNumber          string `json:"seat_number,omitempty"`
	SlotTypeID          string `json:"slot_type_id"`
	BookingDate         string `json:"booking_date,omitempty"`
	StartDate           string `json:"start_date,omitempty"`
	EndDate             string `json:"end_date,omitempty"`
	Status              string `json:"status"`
	SourceApplicationID string `json:"source_application_id,omitempty"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:                  b.ID,
		UserID:              b.UserID,
		LibraryID:           b.LibraryID,
		SeatID:              b.SeatID,
		SeatNumber:          b.SeatNumber,
		SlotTypeID:          b.SlotTypeID,
		BookingDate:         b.BookingDate,
		StartDate:           b.StartDate,
		EndDate:             b.EndDate,
		Status:              string(b.Status),
		SourceApplicationID: b.SourceApplicationID,
		CreatedAt:           b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:           b.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handlers) GetLibraryConfig(w http.ResponseWriter, r *http.Request) {
	libraryID := chi.URLParam(r, "libraryID")

	lib, err := h.engine.GetLibraryConfig(r.Context(), libraryID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	seats := make([]seatResponse, 0, len(lib.Seats))
	for _, s := range lib.Seats {
		seats = append(seats, seatResponse{
			ID: s.ID, SeatNumber: s.SeatNumber, IsAC: s.IsAC, HasPower: s.HasPower, Status: string(s.Status),
		})
	}
	slotTypes := make([]slotTypeResponse, 0, len(lib.SlotTypes))
	for _, st := range lib.SlotTypes {
		slotTypes = append(slotTypes, slotTypeResponse{
			ID: st.ID, StartTime: st.StartTime, EndTime: st.EndTime, DurationType: string(st.DurationType), IsPeak: st.IsPeak,
		})
	}
	pricing := make([]pricingResponse, 0, len(lib.Pricing))
	for _, p := range lib.Pricing {
		pricing = append(pricing, pricingResponse{
			DurationType: string(p.DurationType), SeatCategory: string(p.SeatCategory), BasePrice: p.BasePrice,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"seats":      seats,
		"slot_types": slotTypes,
		"pricing":    pricing,
	})
}

func (h *Handlers) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	libraryID := chi.URLParam(r, "libraryID")
	date := r.URL.Query().Get("date")
	isAC, _ := strconv.ParseBool(r.URL.Query().Get("ac"))

	slots, err := h.engine.GetAvailableSlots(r.Context(), libraryID, date, domain.SeatRequirements{IsAC: isAC})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	type slotRow struct {
		slotTypeResponse
		Price          float64 `json:"price"`
		SeatsAvailable int     `json:"seats_available"`
	}
	out := make([]slotRow, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotRow{
			slotTypeResponse: slotTypeResponse{
				ID: s.SlotType.ID, StartTime: s.SlotType.StartTime, EndTime: s.SlotType.EndTime,
				DurationType: string(s.SlotType.DurationType), IsPeak: s.SlotType.IsPeak,
			},
			Price:          s.Price,
			SeatsAvailable: s.SeatsAvailable,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": out})
}

func (h *Handlers) AllocateSeat(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if h.replayed(w, r, key) {
		return
	}

	var req struct {
		LibraryID        string               `json:"library_id"`
		Date             string               `json:"date"`
		SlotTypeID       string               `json:"slot_type_id"`
		SeatRequirements seatRequirementsBody `json:"seat_requirements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, errors.Wrap(domain.ErrInvalidArgument, err.Error()))
		return
	}

	booking, err := h.engine.AllocateSeat(r.Context(), IdentityFrom(r.Context()), allocation.AllocateSeatInput{
		LibraryID:    req.LibraryID,
		Date:         req.Date,
		SlotTypeID:   req.SlotTypeID,
		Requirements: domain.SeatRequirements{IsAC: req.SeatRequirements.IsAC},
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.respond(w, r, key, http.StatusCreated, map[string]interface{}{"booking": toBookingResponse(booking)})
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.engine.ListBookings(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": out})
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if h.replayed(w, r, key) {
		return
	}

	bookingID := chi.URLParam(r, "bookingID")
	if err := h.engine.CancelBooking(r.Context(), IdentityFrom(r.Context()), bookingID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.respond(w, r, key, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "booking cancelled",
	})
}

func (h *Handlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if h.replayed(w, r, key) {
		return
	}

	var req struct {
		LibraryID           string               `json:"library_id"`
		SeatRequirements    seatRequirementsBody `json:"seat_requirements"`
		SubscriptionDetails struct {
			StartDate  string `json:"start_date"`
			EndDate    string `json:"end_date"`
			SlotTypeID string `json:"slot_type_id"`
		} `json:"subscription_details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, errors.Wrap(domain.ErrInvalidArgument, err.Error()))
		return
	}

	ids, err := h.engine.CreateSubscription(r.Context(), IdentityFrom(r.Context()), allocation.SubscriptionInput{
		LibraryID:    req.LibraryID,
		StartDate:    req.SubscriptionDetails.StartDate,
		EndDate:      req.SubscriptionDetails.EndDate,
		SlotTypeID:   req.SubscriptionDetails.SlotTypeID,
		Requirements: domain.SeatRequirements{IsAC: req.SeatRequirements.IsAC},
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.respond(w, r, key, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"booking_ids": ids,
	})
}

func (h *Handlers) ManagerApproveSeat(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if h.replayed(w, r, key) {
		return
	}

	applicationID := chi.URLParam(r, "applicationID")
	var req struct {
		SeatID    string `json:"seat_id"`
		AutoAllot bool   `json:"auto_allot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, errors.Wrap(domain.ErrInvalidArgument, err.Error()))
		return
	}

	err := h.engine.ManagerApproveSeat(r.Context(), IdentityFrom(r.Context()), allocation.ApprovalInput{
		ApplicationID: applicationID,
		SeatID:        req.SeatID,
		AutoAllot:     req.AutoAllot,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.respond(w, r, key, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "application approved and seat allocated",
	})
}

func (h *Handlers) UpdateLibraryConfig(w http.ResponseWriter, r *http.Request) {
	libraryID := chi.URLParam(r, "libraryID")

	var req struct {
		Name      string             `json:"name"`
		Seats     []seatResponse     `json:"seats"`
		SlotTypes []slotTypeResponse `json:"slot_types"`
		Pricing   []pricingResponse  `json:"pricing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, errors.Wrap(domain.ErrInvalidArgument, err.Error()))
		return
	}

	cfg := &domain.LibraryConfig{ID: libraryID, Name: req.Name}
	for _, s := range req.Seats {
		cfg.Seats = append(cfg.Seats, domain.Seat{
			ID: s.ID, SeatNumber: s.SeatNumber, IsAC: s.IsAC, HasPower: s.HasPower, Status: domain.SeatStatus(s.Status),
		})
	}
	for _, st := range req.SlotTypes {
		cfg.SlotTypes = append(cfg.SlotTypes, domain.SlotType{
			ID: st.ID, StartTime: st.StartTime, EndTime: st.EndTime,
			DurationType: domain.DurationType(st.DurationType), IsPeak: st.IsPeak,
		})
	}
	for _, p := range req.Pricing {
		cfg.Pricing = append(cfg.Pricing, domain.Pricing{
			DurationType: domain.DurationType(p.DurationType),
			SeatCategory: domain.SeatCategory(p.SeatCategory),
			BasePrice:    p.BasePrice,
		})
	}

	if err := h.engine.UpdateLibraryConfig(r.Context(), IdentityFrom(r.Context()), cfg); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "library configuration updated",
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

// replayed answers the request from the idempotency store when the key has
// been seen before.
func (h *Handlers) replayed(w http.ResponseWriter, r *http.Request, key string) bool {
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		writeError(w, h.logger, err)
		return true
	}
	if existing == nil {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(existing.Status)
	w.Write(existing.Result)
	return true
}

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, key string, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)

	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: status, Result: data}); err != nil {
		h.logger.WithError(err).Warn("failed to store idempotent response")
	}
}
