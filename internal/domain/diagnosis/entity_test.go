package diagnosis

import (
	"encoding/base64"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultValidate(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		wantErr bool
	}{
		{"healthy", Result{}, false},
		{"bounds", Result{Diagnoses: []Diagnosis{{"Rust", 0}, {"Blight", 1}}}, false},
		{"empty name", Result{Diagnoses: []Diagnosis{{"  ", 0.5}}}, true},
		{"negative", Result{Diagnoses: []Diagnosis{{"Rust", -0.1}}}, true},
		{"above one", Result{Diagnoses: []Diagnosis{{"Rust", 1.2}}}, true},
		{"nan", Result{Diagnoses: []Diagnosis{{"Rust", math.NaN()}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDiagnosisLevel(t *testing.T) {
	assert.Equal(t, LevelHigh, Diagnosis{Confidence: 0.9}.Level())
	assert.Equal(t, LevelModerate, Diagnosis{Confidence: 0.75}.Level())
	assert.Equal(t, LevelModerate, Diagnosis{Confidence: 0.6}.Level())
	assert.Equal(t, LevelLow, Diagnosis{Confidence: 0.5}.Level())
	assert.Equal(t, LevelLow, Diagnosis{Confidence: 0}.Level())
}

func TestRecordClone_IsDeep(t *testing.T) {
	orig := Record{ID: "a", Diagnoses: []Diagnosis{{"Rust", 0.7}}}

	cp := orig.Clone()
	cp.Diagnoses[0].Disease = "changed"

	assert.Equal(t, "Rust", orig.Diagnoses[0].Disease)
}

func TestRecordClone_NilDiagnosesBecomeEmpty(t *testing.T) {
	cp := Record{ID: "a"}.Clone()

	require.NotNil(t, cp.Diagnoses)
	assert.True(t, cp.Healthy())
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func TestParsePhoto(t *testing.T) {
	p, err := ParsePhoto(dataURI("image/png", []byte("pngbytes")))
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.ContentType)
	assert.Equal(t, []byte("pngbytes"), p.Data)
	assert.Equal(t, ".png", p.Extension())
}

func TestParsePhoto_ExtraParams(t *testing.T) {
	uri := "data:image/jpeg;name=leaf.jpg;base64," + base64.StdEncoding.EncodeToString([]byte("jpg"))

	p, err := ParsePhoto(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", p.ContentType)
	assert.Equal(t, ".jpg", p.Extension())
}

func TestParsePhoto_Errors(t *testing.T) {
	_, err := ParsePhoto("https://example.com/leaf.png")
	assert.ErrorIs(t, err, ErrNotDataURI)

	_, err = ParsePhoto("data:image/png,rawbytes")
	assert.ErrorIs(t, err, ErrNotDataURI)

	_, err = ParsePhoto(dataURI("application/pdf", []byte("pdf")))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = ParsePhoto("data:image/png;base64,@@@")
	assert.Error(t, err)

	big := strings.Repeat("A", base64.StdEncoding.EncodedLen(MaxPhotoBytes+1024))
	_, err = ParsePhoto("data:image/png;base64," + big)
	assert.ErrorIs(t, err, ErrPhotoTooLarge)
}
