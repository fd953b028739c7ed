package analyzer

import (
	"strconv"
	"strings"

	"github.com/bdougie/photoreel/internal/models"
)

const basePrompt = "For this image, provide:\n" +
	"1. A detailed description\n" +
	"2. Location guess based on the image\n" +
	"3. Start with 'Instagram Reel Caption:' followed by a catchy caption with relevant hashtags"

// BuildPrompt appends whatever capture metadata is known to the fixed
// instructions.
func BuildPrompt(meta models.ImageMetadata) string {
	parts := []string{basePrompt}

	if meta.DateTime != nil && *meta.DateTime != "" {
		parts = append(parts, "This photo was taken on "+*meta.DateTime+".")
	}

	if meta.Latitude != nil && meta.Longitude != nil {
		parts = append(parts, "The location coordinates are Latitude "+formatCoord(*meta.Latitude)+
			", Longitude "+formatCoord(*meta.Longitude)+".")
	}

	return strings.Join(parts, " ")
}

// ImageURL forms the public address of an image. The base URL is expected
// to end with a slash.
func ImageURL(baseURL, fileName string) string {
	return baseURL + fileName
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
