package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
)

func TestDepartmentsAreUniqueAndNonEmpty(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range Departments() {
		require.False(t, seen[name], "duplicate department %s", name)
		seen[name] = true
		assert.NotEmpty(t, Cities(name), "department %s has no cities", name)
	}
	assert.Len(t, seen, 33)
}

func TestCitiesLookupIgnoresCaseAndAccents(t *testing.T) {
	assert.Contains(t, Cities("atlantico"), "Barranquilla")
	assert.Contains(t, Cities("VALLE DEL CAUCA"), "Cali")
	assert.Nil(t, Cities("Atlantis"))
}

func TestCitiesReturnsCopy(t *testing.T) {
	cities := Cities("Antioquia")
	cities[0] = "Changed"
	assert.Equal(t, "Medellín", Cities("Antioquia")[0])
}

func TestCityInDepartment(t *testing.T) {
	assert.True(t, CityInDepartment("medellin", "Antioquia"))
	assert.True(t, CityInDepartment("Bogota", "Cundinamarca"))
	assert.True(t, CityInDepartment("Bogotá", "bogota d.c."))
	assert.False(t, CityInDepartment("Medellín", "Cundinamarca"))
	assert.False(t, CityInDepartment("Medellín", "Unknown"))
}

func TestLocalities(t *testing.T) {
	assert.Len(t, Localities("Bogotá"), 20)
	assert.Len(t, Localities("BOGOTA"), 20)
	assert.Empty(t, Localities("Medellín"))
	assert.True(t, IsLocality("bogota", "usaquen"))
	assert.False(t, IsLocality("bogota", "Poblado"))
}

func TestIsBogota(t *testing.T) {
	for _, city := range []string{"Bogotá", "bogota", "BOGOTÁ", " Bogotá D.C. "} {
		assert.True(t, IsBogota(city), city)
	}
	assert.False(t, IsBogota("Medellín"))
	assert.False(t, IsBogota(""))
}

func TestCanonicalNames(t *testing.T) {
	name, ok := CityName("itagui")
	require.True(t, ok)
	assert.Equal(t, "Itagüí", name)

	dept, ok := DepartmentName("narino")
	require.True(t, ok)
	assert.Equal(t, "Nariño", dept)

	_, ok = CityName("Gotham")
	assert.False(t, ok)
}

func TestCoverage(t *testing.T) {
	zone, ok := Coverage(domain.Destination{City: "Bogotá", Department: "Cundinamarca"})
	require.True(t, ok)
	assert.Equal(t, ZoneLocal, zone)

	zone, ok = Coverage(domain.Destination{City: "chia", Department: "Cundinamarca"})
	require.True(t, ok)
	assert.Equal(t, ZoneRegional, zone)

	zone, ok = Coverage(domain.Destination{City: "Cali", Department: "Valle del Cauca"})
	require.True(t, ok)
	assert.Equal(t, ZoneNational, zone)

	_, ok = Coverage(domain.Destination{City: "Gotham"})
	assert.False(t, ok)
}
