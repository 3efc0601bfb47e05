package httpx

import (
	"errors"
	"net/http"

	"github.com/splax/cornerstone/internal/service/profile"
	"github.com/splax/cornerstone/internal/storage"
)

const avatarFormField = "file"

func (r *Router) handleProfile(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	switch req.Method {
	case http.MethodGet:
		p, err := r.svc.Profiles.Get(req.Context(), info.UserID)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut, http.MethodPatch:
		var in profile.Input
		if !decodeJSON(w, req, &in) {
			return
		}
		p, err := r.svc.Profiles.Update(req.Context(), info.UserID, in)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	default:
		r.methodNotAllowed(w)
	}
}

// handleAvatarUpload stores a multipart image and returns its public URL. The
// profile is not touched; clients follow up with PUT /profile.
func (r *Router) handleAvatarUpload(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	if r.bucket == nil {
		writeError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}
	info, _ := authInfoFromContext(req.Context())
	// multipart framing adds a little on top of the file itself
	req.Body = http.MaxBytesReader(w, req.Body, r.bucket.MaxBytes()+64<<10)
	file, header, err := req.FormFile(avatarFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			r.writeServiceError(w, storage.ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()
	if header.Size > r.bucket.MaxBytes() {
		r.writeServiceError(w, storage.ErrTooLarge)
		return
	}
	url, err := r.bucket.PutAvatar(info.UserID, header.Filename, file)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	r.logger.Info("avatar stored", "user_id", info.UserID, "bytes", header.Size)
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
