package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/midiwire/pkg/packet"
	"github.com/ssargent/midiwire/pkg/storage"
	"github.com/ssargent/midiwire/pkg/transport"
)

const (
	contentTypeJSON  = "application/json"
	contentTypeOctet = "application/octet-stream"

	// maxBodySize bounds request bodies. Lists above packet.MaxPacketListSize
	// are still read so the router can reject them with a clear error.
	maxBodySize = 4 << 20
)

// Server holds the API server state
type Server struct {
	router  *transport.Router
	clips   *storage.ClipStore
	config  ServerConfig
	metrics *Metrics
	logger  *log.Logger
}

// NewServer creates a new API server. clips may be nil, in which case the
// clip routes answer 503.
func NewServer(router *transport.Router, clips *storage.ClipStore, config ServerConfig, metrics *Metrics, logger *log.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		router:  router,
		clips:   clips,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]interface{}{
		"status":    "healthy",
		"layout":    s.router.Layout().String(),
		"endpoints": len(s.router.Destinations()),
	})
}

// handleListEndpoints godoc
//
//	@Summary		List endpoints
//	@Tags			endpoints
//	@Produce		json
//	@Success		200	{array}	string
//	@Router			/endpoints [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, s.router.Destinations())
}

// handleCreateEndpoint godoc
//
//	@Summary		Create a virtual destination
//	@Tags			endpoints
//	@Param			name	path	string	true	"Endpoint name"
//	@Success		201	{object}	map[string]string
//	@Failure		409	{object}	map[string]string
//	@Router			/endpoints/{name} [post]
//	@Security		ApiKeyAuth
func (s *Server) handleCreateEndpoint(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		sendError(w, "Endpoint name is required", http.StatusBadRequest)
		return
	}
	if err := s.router.CreateDestination(name); err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}
	s.logger.Printf("api: created endpoint %s", name)
	sendCreated(w, map[string]string{"name": name})
}

// handleDeleteEndpoint godoc
//
//	@Summary		Remove a virtual destination
//	@Tags			endpoints
//	@Param			name	path	string	true	"Endpoint name"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/endpoints/{name} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.router.RemoveDestination(name); err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}
	s.logger.Printf("api: removed endpoint %s", name)
	sendSuccess(w, map[string]string{"message": "Endpoint removed"})
}

// handleSend godoc
//
//	@Summary		Send a packet list
//	@Description	Body is either an encoded list (application/octet-stream) or
//	@Description	JSON {"packets":[{"timestamp":0,"data":"90407f"}]}.
//	@Tags			endpoints
//	@Accept			octet-stream,json
//	@Produce		json
//	@Param			name	path		string	true	"Endpoint name"
//	@Success		200		{object}	SendResult
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		413		{object}	map[string]string
//	@Router			/endpoints/{name}/send [post]
//	@Security		ApiKeyAuth
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	list, err := s.readPacketList(w, r)
	if err != nil {
		sendError(w, err.Error(), statusFor(err))
		return
	}

	s.send(r.Context(), w, name, list)
}

func (s *Server) send(ctx context.Context, w http.ResponseWriter, name string, list packet.PacketList) {
	if err := s.router.Send(ctx, name, list); err != nil {
		s.metrics.RecordPacketList(list, false)
		sendError(w, fmt.Sprintf("Failed to send packet list: %v", err), statusFor(err))
		return
	}
	s.metrics.RecordPacketList(list, true)

	sendSuccess(w, SendResult{
		Endpoint: name,
		Packets:  list.Length(),
		Bytes:    list.Size(),
	})
}

// readPacketList reads a list from an octet-stream or JSON request body.
func (s *Server) readPacketList(w http.ResponseWriter, r *http.Request) (packet.PacketList, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return packet.PacketList{}, &requestError{fmt.Sprintf("failed to read request body: %v", err)}
	}

	layout := s.router.Layout()
	if isOctetStream(r) {
		list, err := packet.ParsePacketList(body, layout)
		if err != nil {
			return packet.PacketList{}, &requestError{fmt.Sprintf("invalid packet list: %v", err)}
		}
		return list, nil
	}

	var req SendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return packet.PacketList{}, &requestError{"Invalid JSON in request body"}
	}
	return buildPacketList(layout, req.Packets)
}

// buildPacketList encodes JSON packets with a PacketBuffer.
func buildPacketList(layout packet.Layout, packets []PacketJSON) (packet.PacketList, error) {
	buf := packet.NewPacketBuffer(layout)
	for i, p := range packets {
		data, err := hex.DecodeString(p.Data)
		if err != nil {
			return packet.PacketList{}, &requestError{fmt.Sprintf("packet %d: data is not hex: %v", i, err)}
		}
		if len(data) >= packet.MaxPacketDataLength {
			return packet.PacketList{}, &requestError{fmt.Sprintf("packet %d: %d data bytes exceeds the packet limit", i, len(data))}
		}
		buf.WithData(p.Timestamp, data)
	}
	return buf.List(), nil
}

// renderPackets is the inverse of buildPacketList.
func renderPackets(list packet.PacketList) []PacketJSON {
	packets := make([]PacketJSON, 0, list.Length())
	for p := range list.All() {
		packets = append(packets, PacketJSON{
			Timestamp: p.Timestamp(),
			Data:      hex.EncodeToString(p.Data()),
		})
	}
	return packets
}

func isOctetStream(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == contentTypeOctet
}

// requestError marks a malformed request.
type requestError struct {
	message string
}

func (e *requestError) Error() string {
	return e.message
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, transport.ErrUnknownEndpoint), errors.Is(err, storage.ErrClipNotFound):
		return http.StatusNotFound
	case errors.Is(err, transport.ErrEndpointExists):
		return http.StatusConflict
	case errors.Is(err, transport.ErrListTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, transport.ErrLayoutMismatch), errors.Is(err, storage.ErrInvalidClip):
		return http.StatusBadRequest
	case errors.Is(err, transport.ErrClosed), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
