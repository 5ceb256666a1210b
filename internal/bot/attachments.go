package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"companion/internal/logging"
)

// supportedImageTypes are the MIME types accepted for multimodal LLM
// requests.
var supportedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// attachmentDetails classifies a message's attachments. It returns a
// human-readable summary like "[2 image(s), 1 file(s) attached]" and
// the CDN URLs of images that pass the type and size filters.
func attachmentDetails(attachments []*discordgo.MessageAttachment, maxImageSizeMB int) (string, []string) {
	if len(attachments) == 0 {
		return "", nil
	}

	maxSizeBytes := maxImageSizeMB * 1024 * 1024

	var imageURLs []string
	typeCounts := make(map[string]int)

	for _, att := range attachments {
		contentType := att.ContentType

		switch {
		case supportedImageTypes[contentType]:
			typeCounts["image"]++
			if att.Size <= maxSizeBytes {
				imageURLs = append(imageURLs, att.URL)
			} else {
				logging.Debug("bot", "Skipping image %s (%.1fMB > %dMB limit)",
					att.Filename, float64(att.Size)/1024/1024, maxImageSizeMB)
			}
		case strings.HasPrefix(contentType, "image/"):
			// Unsupported image type (e.g. TIFF, BMP)
			typeCounts["image"]++
		case strings.HasPrefix(contentType, "video/"):
			typeCounts["video"]++
		case strings.HasPrefix(contentType, "audio/"):
			typeCounts["audio"]++
		default:
			typeCounts["file"]++
		}
	}

	names := make([]string, 0, len(typeCounts))
	for name := range typeCounts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%d %s(s)", typeCounts[name], name)
	}

	return fmt.Sprintf("[%s attached]", strings.Join(parts, ", ")), imageURLs
}
