package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/schema"
)

func TestDetect(t *testing.T) {
	d := New(schema.Default())
	tests := []struct {
		name   string
		entity *common.Entity
		want   string
	}{
		{"organization keyword", &common.Entity{Label: "ABC Corp"}, schema.TypeOrganization},
		{"keyword inside word does not count", &common.Entity{Label: "Corporal Jones"}, schema.TypePerson},
		{"coordinates", &common.Entity{Properties: common.Properties{"latitude": 40.7, "longitude": -74.0}}, schema.TypeLocation},
		{"coordinates string", &common.Entity{Properties: common.Properties{"coordinates": "40.7, -74.0"}}, schema.TypeLocation},
		{"person indicators", &common.Entity{Label: "Ada", Properties: common.Properties{"first_name": "Ada", "dob": "1815-12-10"}}, schema.TypePerson},
		{"organization indicators", &common.Entity{Label: "Acme", Properties: common.Properties{"industry": "Explosives", "founded": 1949.0}}, schema.TypeOrganization},
		{"vehicle", &common.Entity{Label: "Blue sedan", Properties: common.Properties{"make": "Ford", "license_plate": "ABC123"}}, schema.TypeVehicle},
		{"no signal", &common.Entity{Label: "???"}, schema.TypePerson},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.Detect(tc.entity).Type)
		})
	}
}

func TestDetectScores(t *testing.T) {
	d := New(schema.Default())
	res := d.Detect(&common.Entity{Properties: common.Properties{"latitude": 40.7, "longitude": -74.0}})

	// two property hits, two pattern hits and the coordinate bonus
	assert.InDelta(t, 1+1+1.5+1.5+3, res.Scores[schema.TypeLocation], 1e-9)
	assert.Len(t, res.Scores, 7)
}

func TestDetectTieGoesToEarliestType(t *testing.T) {
	r := schema.NewRegistry()
	require.NoError(t, r.RegisterEntityType(schema.EntityTypeDef{Name: "alpha", Icon: "a", Color: "#111111", Profile: schema.Profile{Keywords: []string{"shared"}}}))
	require.NoError(t, r.RegisterEntityType(schema.EntityTypeDef{Name: "beta", Icon: "b", Color: "#222222", Profile: schema.Profile{Keywords: []string{"shared"}}}))

	d := New(r)
	assert.Equal(t, "alpha", d.Detect(&common.Entity{Label: "the shared one"}).Type)
}

func TestDefaultType(t *testing.T) {
	d := New(schema.Default(), WithDefaultType(schema.TypeDocument))
	assert.Equal(t, schema.TypeDocument, d.Detect(&common.Entity{Label: "???"}).Type)

	d = New(schema.Default(), WithDefaultType("spaceship"))
	assert.Equal(t, schema.TypePerson, d.DefaultType())
}

func TestCustomTypeDetection(t *testing.T) {
	r := schema.Default()
	require.NoError(t, r.RegisterEntityType(schema.EntityTypeDef{
		Name:  "weapon",
		Icon:  "crosshair",
		Color: "#333333",
		Profile: schema.Profile{
			Keywords: []string{"rifle"},
			Patterns: []schema.FieldPattern{{Field: "^caliber$", Value: `^\d+mm$`}},
		},
	}))
	d := New(r)
	assert.Equal(t, "weapon", d.Detect(&common.Entity{Label: "Hunting rifle", Properties: common.Properties{"caliber": "9mm"}}).Type)
}

func TestHasCoordinates(t *testing.T) {
	assert.True(t, HasCoordinates(common.Properties{"lat": "51.5", "lng": "-0.12"}))
	assert.False(t, HasCoordinates(common.Properties{"latitude": 100.0, "longitude": 0.0}))
	assert.False(t, HasCoordinates(common.Properties{"coordinates": "nowhere"}))
	assert.False(t, HasCoordinates(nil))
}
