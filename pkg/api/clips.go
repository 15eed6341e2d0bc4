package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/midiwire/pkg/packet"
	"github.com/ssargent/midiwire/pkg/storage"
)

// handleSaveClip godoc
//
//	@Summary		Save a clip
//	@Description	JSON {"name":"...","packets":[...]}, or an encoded list as
//	@Description	application/octet-stream with the name in ?name=.
//	@Tags			clips
//	@Accept			json,octet-stream
//	@Produce		json
//	@Success		201	{object}	ClipSummary
//	@Failure		400	{object}	map[string]string
//	@Router			/clips [post]
//	@Security		ApiKeyAuth
func (s *Server) handleSaveClip(w http.ResponseWriter, r *http.Request) {
	if !s.requireClips(w) {
		return
	}

	name, list, err := s.readClip(w, r)
	if err != nil {
		s.metrics.RecordClipOperation("save", false)
		sendError(w, err.Error(), statusFor(err))
		return
	}

	id, err := s.clips.SaveClip(name, list)
	if err != nil {
		s.metrics.RecordClipOperation("save", false)
		sendError(w, fmt.Sprintf("Failed to save clip: %v", err), statusFor(err))
		return
	}
	s.metrics.RecordClipOperation("save", true)
	s.logger.Printf("api: saved clip %s (%s, %d packets)", id, name, list.Length())

	sendCreated(w, ClipSummary{
		ID:      id.String(),
		Name:    name,
		Created: id.Time(),
		Packets: list.Length(),
		Bytes:   list.Size(),
	})
}

func (s *Server) readClip(w http.ResponseWriter, r *http.Request) (string, packet.PacketList, error) {
	layout := s.clips.Layout()

	if isOctetStream(r) {
		name := r.URL.Query().Get("name")
		if name == "" {
			return "", packet.PacketList{}, &requestError{"name query parameter is required"}
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			return "", packet.PacketList{}, &requestError{fmt.Sprintf("failed to read request body: %v", err)}
		}
		list, err := packet.ParsePacketList(body, layout)
		if err != nil {
			return "", packet.PacketList{}, &requestError{fmt.Sprintf("invalid packet list: %v", err)}
		}
		return name, list, nil
	}

	var req ClipRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		return "", packet.PacketList{}, &requestError{"Invalid JSON in request body"}
	}
	if req.Name == "" {
		return "", packet.PacketList{}, &requestError{"Clip name is required"}
	}
	list, err := buildPacketList(layout, req.Packets)
	if err != nil {
		return "", packet.PacketList{}, err
	}
	return req.Name, list, nil
}

// handleListClips godoc
//
//	@Summary		List clips
//	@Tags			clips
//	@Produce		json
//	@Success		200	{array}	ClipSummary
//	@Router			/clips [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListClips(w http.ResponseWriter, r *http.Request) {
	if !s.requireClips(w) {
		return
	}

	infos, err := s.clips.ListClips()
	if err != nil {
		s.metrics.RecordClipOperation("list", false)
		sendError(w, fmt.Sprintf("Failed to list clips: %v", err), http.StatusInternalServerError)
		return
	}
	s.metrics.RecordClipOperation("list", true)

	summaries := make([]ClipSummary, 0, len(infos))
	for _, info := range infos {
		summaries = append(summaries, ClipSummary{
			ID:      info.ID.String(),
			Name:    info.Name,
			Created: info.Created,
			Packets: info.Packets,
			Bytes:   info.Size,
		})
	}
	sendSuccess(w, summaries)
}

// handleGetClip godoc
//
//	@Summary		Get a clip
//	@Description	Use ?format=raw for the encoded list bytes.
//	@Tags			clips
//	@Produce		json,octet-stream
//	@Param			id		path		string	true	"Clip ID"
//	@Param			format	query		string	false	"raw"
//	@Success		200		{object}	ClipResponse
//	@Failure		404		{object}	map[string]string
//	@Router			/clips/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetClip(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.loadClip(w, r, "get")
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "raw" {
		w.Header().Set("Content-Type", contentTypeOctet)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clip.ID.String()+".bin"))
		if _, err := w.Write(clip.List.Bytes()); err != nil {
			s.logger.Printf("api: writing clip %s: %v", clip.ID, err)
		}
		return
	}

	sendSuccess(w, ClipResponse{
		ClipSummary: ClipSummary{
			ID:      clip.ID.String(),
			Name:    clip.Name,
			Created: clip.Created,
			Packets: clip.List.Length(),
			Bytes:   clip.List.Size(),
		},
		Layout: clip.List.Layout().String(),
		List:   renderPackets(clip.List),
	})
}

// handleDeleteClip godoc
//
//	@Summary		Delete a clip
//	@Tags			clips
//	@Param			id	path		string	true	"Clip ID"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/clips/{id} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteClip(w http.ResponseWriter, r *http.Request) {
	if !s.requireClips(w) {
		return
	}
	id, ok := parseClipID(w, r)
	if !ok {
		return
	}

	if err := s.clips.DeleteClip(id); err != nil {
		s.metrics.RecordClipOperation("delete", false)
		sendError(w, err.Error(), statusFor(err))
		return
	}
	s.metrics.RecordClipOperation("delete", true)
	sendSuccess(w, map[string]string{"message": "Clip deleted"})
}

// handlePlayClip godoc
//
//	@Summary		Send a stored clip to an endpoint
//	@Tags			clips
//	@Param			id			path		string	true	"Clip ID"
//	@Param			endpoint	query		string	true	"Endpoint name"
//	@Success		200			{object}	SendResult
//	@Failure		404			{object}	map[string]string
//	@Router			/clips/{id}/play [post]
//	@Security		ApiKeyAuth
func (s *Server) handlePlayClip(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		sendError(w, "endpoint query parameter is required", http.StatusBadRequest)
		return
	}

	clip, ok := s.loadClip(w, r, "play")
	if !ok {
		return
	}
	s.send(r.Context(), w, endpoint, clip.List)
}

func (s *Server) loadClip(w http.ResponseWriter, r *http.Request, operation string) (*storage.Clip, bool) {
	if !s.requireClips(w) {
		return nil, false
	}
	id, ok := parseClipID(w, r)
	if !ok {
		return nil, false
	}

	clip, err := s.clips.Clip(id)
	if err != nil {
		s.metrics.RecordClipOperation(operation, false)
		sendError(w, err.Error(), statusFor(err))
		return nil, false
	}
	s.metrics.RecordClipOperation(operation, true)
	return clip, true
}

func parseClipID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid clip ID", http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

func (s *Server) requireClips(w http.ResponseWriter) bool {
	if s.clips == nil {
		sendError(w, "Clip store is not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}
