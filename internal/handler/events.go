package handler

import (
	"errors"
	"net/http"

	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"

	"github.com/certifyapp/certnotify/internal/middleware"
	"github.com/certifyapp/certnotify/internal/model"
	"github.com/certifyapp/certnotify/internal/trigger"
)

// Event decode results, as counted by metrics
const (
	eventAccepted  = "accepted"
	eventIgnored   = "ignored"
	eventMalformed = "malformed"
)

// DeliveryResponse is returned for events that reached the mail provider
type DeliveryResponse struct {
	CertificateID string `json:"certificateId"`
	EventID       string `json:"eventId,omitempty"`
	Status        string `json:"status"`
	Outcome       string `json:"outcome"`
	Error         string `json:"error,omitempty"`
}

// ReceiveEvent handles a Firestore document CloudEvent push.
//
// Skipped, ignored and duplicate events answer 204. A sent email answers 200.
// A failed delivery answers 200 unless trigger.retry_on_failure is set, in
// which case 500 asks the platform to redeliver. Undecodable events answer 400.
func (h *Handler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.WithRequestID(middleware.GetRequestID(ctx))

	e, err := cehttp.NewEventFromHTTPRequest(r)
	if err != nil {
		h.countEvent(eventMalformed)
		log.Warn().Err(err).Msg("Failed to read CloudEvent")
		writeError(w, http.StatusBadRequest, "malformed_event", "Request is not a valid CloudEvent")
		return
	}
	log = log.WithEventID(e.ID())

	change, err := h.decoder.Decode(*e)
	switch {
	case errors.Is(err, trigger.ErrUnsupportedEvent):
		h.countEvent(eventIgnored)
		log.Debug().Err(err).Str("type", e.Type()).Msg("Ignoring document event")
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		h.countEvent(eventMalformed)
		log.Warn().Err(err).Str("type", e.Type()).Msg("Failed to decode document event")
		writeError(w, http.StatusBadRequest, "malformed_event", err.Error())
		return
	}
	h.countEvent(eventAccepted)

	result := h.notifySvc.Notify(ctx, change)

	switch result.Outcome {
	case model.DeliveryOutcomeSent:
		writeJSON(w, http.StatusOK, deliveryResponse(result))
	case model.DeliveryOutcomeFailed:
		status := http.StatusOK
		if h.cfg.Trigger.RetryOnFailure {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, deliveryResponse(result))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) countEvent(result string) {
	if h.metrics != nil {
		h.metrics.IncEvent(result)
	}
}

func deliveryResponse(result model.DeliveryResult) DeliveryResponse {
	resp := DeliveryResponse{
		CertificateID: result.CertificateID,
		EventID:       result.EventID,
		Status:        string(result.Status),
		Outcome:       string(result.Outcome),
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp
}
