// Package location exposes the static department, city and locality tables
// used by checkout selectors and the shipping coverage lookup. Every lookup is
// case- and accent-insensitive.
package location

import (
	"slices"
	"sync"

	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/textutil"
)

const bogotaKey = "bogota"

// Zone classifies how a destination is served.
type Zone string

const (
	ZoneLocal    Zone = "local"
	ZoneRegional Zone = "regional"
	ZoneNational Zone = "national"
)

type department struct {
	Name   string
	Cities []string
}

type index struct {
	departments map[string]department
	cities      map[string]string
	regional    map[string]struct{}
}

var loadIndex = sync.OnceValue(func() *index {
	idx := &index{
		departments: make(map[string]department, len(departments)),
		cities:      make(map[string]string),
		regional:    make(map[string]struct{}, len(regionalCities)),
	}
	for _, dept := range departments {
		idx.departments[textutil.Fold(dept.Name)] = dept
		for _, city := range dept.Cities {
			key := textutil.Fold(city)
			if _, exists := idx.cities[key]; !exists {
				idx.cities[key] = city
			}
		}
	}
	for _, city := range regionalCities {
		idx.regional[textutil.Fold(city)] = struct{}{}
	}
	return idx
})

// Departments returns department names in display order.
func Departments() []string {
	out := make([]string, 0, len(departments))
	for _, dept := range departments {
		out = append(out, dept.Name)
	}
	return out
}

// Cities returns the cities of department, or nil when it is unknown.
func Cities(departmentName string) []string {
	dept, ok := loadIndex().departments[textutil.Fold(departmentName)]
	if !ok {
		return nil
	}
	return slices.Clone(dept.Cities)
}

// Localities returns the localities of city. Only Bogotá has localities.
func Localities(city string) []string {
	if !IsBogota(city) {
		return nil
	}
	return slices.Clone(bogotaLocalities)
}

// DepartmentName returns the canonical spelling of a department.
func DepartmentName(name string) (string, bool) {
	dept, ok := loadIndex().departments[textutil.Fold(name)]
	return dept.Name, ok
}

// CityName returns the canonical spelling of a city.
func CityName(name string) (string, bool) {
	city, ok := loadIndex().cities[textutil.Fold(name)]
	return city, ok
}

// CityInDepartment reports whether city belongs to departmentName.
func CityInDepartment(city, departmentName string) bool {
	dept, ok := loadIndex().departments[textutil.Fold(departmentName)]
	if !ok {
		return false
	}
	key := textutil.Fold(city)
	return slices.ContainsFunc(dept.Cities, func(candidate string) bool {
		return textutil.Fold(candidate) == key
	})
}

// IsLocality reports whether locality is one of city's localities.
func IsLocality(city, locality string) bool {
	key := textutil.Fold(locality)
	return slices.ContainsFunc(Localities(city), func(candidate string) bool {
		return textutil.Fold(candidate) == key
	})
}

// IsBogota reports whether city is Bogotá, with or without accent.
func IsBogota(city string) bool {
	key := textutil.Fold(city)
	return key == bogotaKey || key == "bogota d.c." || key == "bogota dc"
}

// Coverage classifies a destination. The second result is false when the city
// is not in the reference tables.
func Coverage(dest domain.Destination) (Zone, bool) {
	if IsBogota(dest.City) {
		return ZoneLocal, true
	}
	idx := loadIndex()
	key := textutil.Fold(dest.City)
	if _, ok := idx.regional[key]; ok {
		return ZoneRegional, true
	}
	if _, ok := idx.cities[key]; ok {
		return ZoneNational, true
	}
	return "", false
}
