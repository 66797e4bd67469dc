package handlers

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/logger"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/middleware"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/storage"
)

// Upload categories under the storage root.
const (
	uploadReceipts = "receipts"
	uploadImages   = "images"
	uploadQR       = "qr"
)

// ErrorResponse documents the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// adminActor names the logged-in admin for audit entries.
func adminActor(c *gin.Context) string {
	if name := c.GetString(middleware.AdminKey); name != "" {
		return "admin:" + name
	}
	return "admin"
}

// parseChatID reads a required int64 chat id from a query or form value.
func parseChatID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "chat_id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "chat_id must be an integer")
	}
	return id, nil
}

// parseOptionalChatID is parseChatID for fields that may be absent.
func parseOptionalChatID(raw string) (*int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseChatID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseFormBool accepts the bot's "true"/"1" spelling; anything else is false.
func parseFormBool(raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && b
}

// parseDecimal parses an optional signed amount; an empty string yields nil.
func parseDecimal(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must be a number")
	}
	return &d, nil
}

// saveUploads stores every file of the multipart field and returns their
// references in upload order. Nothing is kept when one of the files fails.
func saveUploads(c *gin.Context, store storage.Store, field, category string) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil
	}
	files := form.File[field]
	refs := make([]string, 0, len(files))
	for _, fh := range files {
		ref, err := saveFile(store, category, fh)
		if err != nil {
			discardUploads(store, refs)
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// discardUploads removes files saved for a request that was then rejected.
func discardUploads(store storage.Store, refs []string) {
	for _, ref := range refs {
		if err := store.Delete(ref); err != nil {
			logger.Get().Warnw("failed to discard upload", "ref", ref, "error", err)
		}
	}
}

func saveFile(store storage.Store, category string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return store.Save(category, fh.Filename, f)
}

// respondWithError writes the JSON error envelope for err.
func respondWithError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}
