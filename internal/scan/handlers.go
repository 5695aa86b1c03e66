package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/wayveconsulting/wayve-expense-tracker-sub000/internal/blob"
	"github.com/wayveconsulting/wayve-expense-tracker-sub000/internal/extraction"
)

// scanRequest is the wire shape of the scan endpoint. blobUrl2 is an
// optional second pre-rendered page for multi-page use.
type scanRequest struct {
	BlobURL  string `json:"blobUrl"`
	BlobURL2 string `json:"blobUrl2,omitempty"`
}

type scanResponse struct {
	Success bool               `json:"success"`
	Data    *extraction.Result `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealthz is the liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScan runs one receipt scan: resolve identity, gate on quota,
// fetch blob(s), run the pipeline, record usage on success.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolver.Resolve(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Could not resolve tenant for request")
		return
	}

	if s.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "Receipt scanning is not configured")
		return
	}

	// Quota is checked before any fetch or render so a rate-limited
	// tenant costs nothing.
	decision, err := s.guard.Check(identity.TenantID, s.policy)
	if err != nil {
		slog.Error("Quota check failed", "tenant", identity.TenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !decision.Allowed {
		retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
		setCORSHeaders(w)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":             fmt.Sprintf("Scan limit reached. Try again in %d seconds.", retryAfter),
			"limitHit":          decision.LimitHit,
			"retryAfterSeconds": retryAfter,
		})
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.BlobURL) == "" {
		writeError(w, http.StatusBadRequest, "blobUrl is required")
		return
	}

	data, reportedType, err := s.fetcher.Fetch(r.Context(), req.BlobURL)
	if err != nil {
		s.writeFetchError(w, req.BlobURL, err)
		return
	}
	contentType := resolveContentType(reportedType, req.BlobURL, data)

	var result *extraction.Result
	if req.BlobURL2 != "" {
		data2, reportedType2, err := s.fetcher.Fetch(r.Context(), req.BlobURL2)
		if err != nil {
			s.writeFetchError(w, req.BlobURL2, err)
			return
		}
		contentType2 := resolveContentType(reportedType2, req.BlobURL2, data2)
		if contentType == "application/pdf" || contentType2 == "application/pdf" {
			writeError(w, http.StatusBadRequest, "blobUrl2 is only supported for pre-rendered page images, not PDFs")
			return
		}
		result, err = s.pipeline.ScanPages(r.Context(), [][]byte{data, data2}, []string{contentType, contentType2})
		if err != nil {
			s.writeScanError(w, identity, err)
			return
		}
	} else {
		result, err = s.pipeline.Scan(r.Context(), data, contentType)
		if err != nil {
			s.writeScanError(w, identity, err)
			return
		}
	}

	// A two-attempt escalation is invisible to quota accounting: one
	// unit per user-initiated scan, charged only now that the scan
	// reached a successful terminal state.
	if err := s.guard.RecordUsage(identity.TenantID, s.policy.Action); err != nil {
		slog.Warn("Failed to record scan usage", "tenant", identity.TenantID, "error", err)
	}

	writeJSON(w, http.StatusOK, scanResponse{Success: true, Data: result})
}

func (s *Server) writeFetchError(w http.ResponseWriter, blobURL string, err error) {
	if errors.Is(err, blob.ErrHostNotAllowed) {
		writeError(w, http.StatusBadRequest, "blobUrl must point at an allowed storage host")
		return
	}
	slog.Error("Error fetching blob", "url", blobURL, "error", err)
	writeError(w, http.StatusInternalServerError, "Could not fetch the uploaded file. Please try again.")
}

func (s *Server) writeScanError(w http.ResponseWriter, identity Identity, err error) {
	switch {
	case errors.Is(err, extraction.ErrUnsupportedFileType):
		writeError(w, http.StatusBadRequest, "Unsupported file type. Upload a JPEG, PNG, GIF, HEIC image or a PDF.")
	case errors.Is(err, extraction.ErrRenderFailed):
		writeError(w, http.StatusBadRequest, "Could not read the PDF. The file may be corrupted or password-protected; try re-uploading it.")
	default:
		slog.Error("Error scanning receipt", "tenant", identity.TenantID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// resolveContentType picks the MIME type for fetched blob data: the
// storage host's reported type when meaningful, then the URL's file
// extension, then content sniffing.
func resolveContentType(reported string, blobURL string, data []byte) string {
	contentType := strings.ToLower(strings.TrimSpace(reported))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType != "" && contentType != "application/octet-stream" && contentType != "binary/octet-stream" {
		return contentType
	}

	if parsed, err := url.Parse(blobURL); err == nil {
		switch strings.ToLower(path.Ext(parsed.Path)) {
		case ".jpg", ".jpeg":
			return "image/jpeg"
		case ".png":
			return "image/png"
		case ".gif":
			return "image/gif"
		case ".pdf":
			return "application/pdf"
		case ".heic":
			return "image/heic"
		case ".heif":
			return "image/heif"
		}
	}

	return http.DetectContentType(data)
}
