package services

import "github.com/zenchat/zenchat/internal/client/models"

// mergeChats reconciles a freshly fetched conversation with the cached one
// for the same id. Fetched metadata wins wholesale, including updatedAt:
// the last fetch wins. List responses carry no messages or files: when the
// fetched entry has empty arrays and the cached entry does not, the cached
// arrays are preserved so locally applied sends and uploads are never lost.
func mergeChats(cached, fetched *models.Chat) *models.Chat {
	if fetched == nil {
		return cached.Clone()
	}

	merged := fetched.Clone()
	if cached == nil {
		return merged
	}

	if len(merged.Messages) == 0 && len(cached.Messages) > 0 {
		merged.Messages = models.CloneMessages(cached.Messages)
	}
	if len(merged.Files) == 0 && len(cached.Files) > 0 {
		merged.Files = models.CloneAttachments(cached.Files)
	}
	return merged
}
