package config

import (
	"github.com/example/trashvision/internal/pipeline"
	"github.com/example/trashvision/internal/taxonomy"
)

// Built-in tables used when no TABLES_CONFIG file is supplied. The tag lists
// mirror the vocabulary the classifier was trained on.

func defaultTaxonomy() map[string]taxonomy.Label {
	table := make(map[string]taxonomy.Label, len(recyclableTags)+len(nonRecyclableTags))
	for _, tag := range recyclableTags {
		table[tag] = taxonomy.LabelRecyclable
	}
	for _, tag := range nonRecyclableTags {
		table[tag] = taxonomy.LabelNonRecyclable
	}
	return table
}

func defaultRecommendations() pipeline.RecommendationTable {
	organic := make(map[string]struct{}, len(organicTags))
	for _, tag := range organicTags {
		organic[tag] = struct{}{}
	}
	return pipeline.RecommendationTable{
		Recyclable:    "%s item can be placed in recycling bin",
		NonRecyclable: "%s item should go in general waste",
		Organic:       "%s item can be composted or placed in organic waste",
		Unknown:       "could not determine a category for %s; please check local recycling guidelines",
		Generic:       "Unable to classify item. Please check local recycling guidelines.",
		Fallback:      "Classification is temporarily unavailable. Please check local recycling guidelines and try again.",
		OrganicTypes:  organic,
	}
}

var recyclableTags = []string{
	"recyclable",
	"water_bottle", "soda_bottle", "milk_jug", "yogurt_container", "shampoo_bottle",
	"detergent_bottle", "plastic_cup", "plastic_food_container", "plastic_bottle",
	"newspaper", "magazine", "printer_paper", "cardboard_box", "paper_bag",
	"envelopes", "greeting_card", "paper_egg_carton", "milk_carton",
	"aluminum_can", "tin_can", "aluminum_foil", "steel_can", "metal_bottle_cap",
	"glass_bottle", "glass_jar", "mason_jar", "juice_bottle", "pickle_jar",
	"glass_cup", "bubble_wrap", "plastic_container_lid",
}

var nonRecyclableTags = []string{
	"nonrecyclable", "non_recyclable",
	"styrofoam_cup", "styrofoam_tray", "plastic_straw", "chip_bag",
	"candy_wrapper", "plastic_wrap", "frozen_food_packaging", "greasy_pizza_box",
	"paper_towels", "napkins", "tissue_paper", "waxed_paper", "laminated_paper",
	"light_bulb", "batteries", "electronics_parts", "mirrors", "ceramics",
	"broken_glass", "clothes", "rubber_bands", "shoes", "food_scraps",
	"banana_peel", "apple_core", "coffee_grounds", "diapers", "chewing_gum",
	"plastic_toys", "cigarette_butts", "wax_candles", "rubber_gloves",
	"toothbrushes", "disposable_razors",
}

var organicTags = []string{
	"food_scraps", "banana_peel", "apple_core", "coffee_grounds",
}
