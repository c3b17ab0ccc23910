package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heirloom-app/heirloom-go/internal/models"
)

func testSet() *Set {
	return NewSet(1500, 200, 300)
}

func textAsset(mime string) *models.MediaAsset {
	return &models.MediaAsset{ProfileID: "p1", FileName: "uploads/p1/file", MimeType: mime}
}

func durationAsset(mime string, seconds float64) *models.MediaAsset {
	a := textAsset(mime)
	a.DurationSeconds = &seconds
	return a
}

func TestParseFamily(t *testing.T) {
	tests := []struct {
		mime string
		want Family
	}{
		{"text/plain", FamilyText},
		{"text/markdown", FamilyText},
		{"image/png", FamilyImage},
		{"audio/mpeg", FamilyAudio},
		{"video/mp4", FamilyVideo},
		{"application/pdf", FamilyUnknown},
		{"", FamilyUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseFamily(tt.mime), tt.mime)
	}
}

func TestExtractUnknownFamilyEmpty(t *testing.T) {
	res, err := testSet().Extract(textAsset("application/pdf"), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Units)
	assert.Empty(t, res.Evidence)
}

func TestTextChunkCount(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		wantChunks int
	}{
		{"empty yields one chunk", 0, 1},
		{"below window", 100, 1},
		{"exact window", 1500, 1},
		{"one over", 1501, 2},
		{"three windows", 4000, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Repeat("a", tt.length)
			res, err := testSet().Extract(textAsset("text/plain"), []byte(content))
			require.NoError(t, err)
			require.Len(t, res.Units, tt.wantChunks)
			require.Len(t, res.Evidence, tt.wantChunks)

			// every chunk is full-size except possibly the last
			for i, unit := range res.Units {
				if unit.Description == nil {
					continue
				}
				if i < len(res.Units)-1 {
					assert.Len(t, []rune(*unit.Description), 1500)
				}
			}
			if tt.length > 0 {
				last := res.Units[len(res.Units)-1]
				require.NotNil(t, last.Description)
				wantLast := tt.length - 1500*(tt.wantChunks-1)
				assert.Len(t, []rune(*last.Description), wantLast)
			}
		})
	}
}

func TestTextChunkFields(t *testing.T) {
	content := strings.Repeat("x", 1500) + "tail content"
	res, err := testSet().Extract(textAsset("text/plain"), []byte(content))
	require.NoError(t, err)
	require.Len(t, res.Units, 2)

	first, second := res.Units[0], res.Units[1]
	assert.Equal(t, "Text Chunk 1", first.Title)
	assert.Equal(t, "Text Chunk 2", second.Title)
	assert.Equal(t, strings.Repeat("x", 200), first.Summary)
	assert.Equal(t, "tail content", second.Summary)
	assert.Equal(t, "Other", first.EventType)
	assert.Equal(t, []string{"unknown"}, first.Places)
	assert.Equal(t, []string{"unspecified"}, first.Dates)
	assert.Equal(t, []string{}, first.Keywords)
	assert.Equal(t, strings.Repeat("x", 300), res.Evidence[0].EvidenceText)
	assert.Nil(t, first.StartTimeMs)
	assert.Nil(t, first.EndTimeMs)
}

func TestTextEmptyContentPlaceholders(t *testing.T) {
	res, err := testSet().Extract(textAsset("text/plain"), nil)
	require.NoError(t, err)
	require.Len(t, res.Units, 1)

	unit := res.Units[0]
	assert.Equal(t, "Text Chunk 1", unit.Title)
	assert.Equal(t, "(empty)", unit.Summary)
	assert.Nil(t, unit.Description)
	assert.Equal(t, "(empty)", res.Evidence[0].EvidenceText)
}

func TestTextWhitespaceOnlyChunk(t *testing.T) {
	res, err := testSet().Extract(textAsset("text/plain"), []byte("   \n\t  "))
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.Equal(t, "(empty)", res.Units[0].Summary)
	assert.Nil(t, res.Units[0].Description)
}

func TestTextInvalidUTF8Replaced(t *testing.T) {
	res, err := testSet().Extract(textAsset("text/plain"), []byte{0xff, 'o', 'k'})
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	require.NotNil(t, res.Units[0].Description)
	assert.Contains(t, *res.Units[0].Description, "ok")
	assert.Contains(t, *res.Units[0].Description, "�")
}

func TestImagePlaceholder(t *testing.T) {
	res, err := testSet().Extract(textAsset("image/png"), nil)
	require.NoError(t, err)
	require.Len(t, res.Units, 1)

	unit := res.Units[0]
	assert.Equal(t, "Image Memory", unit.Title)
	assert.Equal(t, "Image uploaded.", unit.Summary)
	require.NotNil(t, unit.Description)
	assert.Equal(t, "Image content not analyzed.", *unit.Description)
	assert.Nil(t, unit.StartTimeMs)
	assert.Equal(t, "Visual evidence not analyzed.", res.Evidence[0].EvidenceText)
}

func TestAudioSegmentSpan(t *testing.T) {
	res, err := testSet().Extract(durationAsset("audio/mpeg", 125.4), nil)
	require.NoError(t, err)
	require.Len(t, res.Units, 1)

	unit := res.Units[0]
	assert.Equal(t, "Audio Segment 1", unit.Title)
	require.NotNil(t, unit.StartTimeMs)
	require.NotNil(t, unit.EndTimeMs)
	assert.Equal(t, int64(0), *unit.StartTimeMs)
	assert.Equal(t, int64(125400), *unit.EndTimeMs)

	ev := res.Evidence[0]
	assert.Equal(t, "Transcript not available.", ev.EvidenceText)
	assert.Equal(t, int64(0), *ev.StartTimeMs)
	assert.Equal(t, int64(125400), *ev.EndTimeMs)
}

func TestAudioZeroDurationFlooredToOneMs(t *testing.T) {
	res, err := testSet().Extract(durationAsset("audio/wav", 0), nil)
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.Equal(t, int64(1), *res.Units[0].EndTimeMs)
}

func TestAudioMissingDuration(t *testing.T) {
	_, err := testSet().Extract(textAsset("audio/mpeg"), nil)
	assert.ErrorIs(t, err, ErrMissingDuration)
}

func TestVideoSegment(t *testing.T) {
	res, err := testSet().Extract(durationAsset("video/mp4", 2.5), nil)
	require.NoError(t, err)
	require.Len(t, res.Units, 1)

	unit := res.Units[0]
	assert.Equal(t, "Video Segment 1", unit.Title)
	require.NotNil(t, unit.Description)
	assert.Equal(t, "Video content not analyzed.", *unit.Description)
	assert.Equal(t, int64(2500), *unit.EndTimeMs)
	assert.Equal(t, "Transcript/visual evidence not available.", res.Evidence[0].EvidenceText)
}

func TestVideoMissingDuration(t *testing.T) {
	_, err := testSet().Extract(textAsset("video/mp4"), nil)
	assert.ErrorIs(t, err, ErrMissingDuration)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("text/plain"))
	assert.True(t, IsSupported("video/mp4"))
	assert.False(t, IsSupported("application/zip"))
	assert.False(t, IsSupported("text/html"))
}
