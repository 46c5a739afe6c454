package places

import "github.com/FACorreiaa/go-travel-planner/internal/types"

// googleTypeToCategory maps Places API types onto the pipeline's closed
// category set. Unrecognized types fall through to CategoryOther.
var googleTypeToCategory = map[string]types.Category{
	"restaurant":              types.CategoryRestaurant,
	"food":                    types.CategoryRestaurant,
	"meal_takeaway":           types.CategoryRestaurant,
	"meal_delivery":           types.CategoryRestaurant,
	"korean_restaurant":       types.CategoryRestaurant,
	"japanese_restaurant":     types.CategoryRestaurant,
	"chinese_restaurant":      types.CategoryRestaurant,
	"italian_restaurant":      types.CategoryRestaurant,
	"bar":                     types.CategoryRestaurant,
	"pub":                     types.CategoryRestaurant,
	"cafe":                    types.CategoryCafe,
	"coffee_shop":             types.CategoryCafe,
	"bakery":                  types.CategoryCafe,
	"tea_house":               types.CategoryCafe,
	"tourist_attraction":      types.CategoryAttraction,
	"museum":                  types.CategoryAttraction,
	"art_gallery":             types.CategoryAttraction,
	"park":                    types.CategoryAttraction,
	"historical_landmark":     types.CategoryAttraction,
	"place_of_worship":        types.CategoryAttraction,
	"temple":                  types.CategoryAttraction,
	"church":                  types.CategoryAttraction,
	"zoo":                     types.CategoryAttraction,
	"aquarium":                types.CategoryAttraction,
	"lodging":                 types.CategoryAccommodation,
	"hotel":                   types.CategoryAccommodation,
	"guest_house":             types.CategoryAccommodation,
	"hostel":                  types.CategoryAccommodation,
	"shopping_mall":           types.CategoryShopping,
	"department_store":        types.CategoryShopping,
	"market":                  types.CategoryShopping,
	"store":                   types.CategoryShopping,
	"clothing_store":          types.CategoryShopping,
	"night_club":              types.CategoryEntertainment,
	"movie_theater":           types.CategoryEntertainment,
	"amusement_park":          types.CategoryEntertainment,
	"casino":                  types.CategoryEntertainment,
	"karaoke":                 types.CategoryEntertainment,
	"performing_arts_theater": types.CategoryEntertainment,
}

// mapCategory checks primaryType first, then the full type list in order.
func mapCategory(primaryType string, placeTypes []string) types.Category {
	if cat, ok := googleTypeToCategory[primaryType]; ok {
		return cat
	}
	for _, t := range placeTypes {
		if cat, ok := googleTypeToCategory[t]; ok {
			return cat
		}
	}
	return types.CategoryOther
}
