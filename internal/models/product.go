package models

import "time"

type Category string

const (
	CategoryTShirts    Category = "T-Shirts"
	CategoryChocolates Category = "Chocolates"
	CategoryFrames     Category = "Frames"
	CategoryFlowers    Category = "Flowers"
	CategoryLamps      Category = "Lamps"
	CategoryCups       Category = "Cups"
	CategoryKeyChains  Category = "Key Chains"
	CategoryHomeDecor  Category = "Home Decor"
)

var Categories = []Category{
	CategoryTShirts, CategoryChocolates, CategoryFrames, CategoryFlowers,
	CategoryLamps, CategoryCups, CategoryKeyChains, CategoryHomeDecor,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

const (
	DefaultDescription = "No description available"
	DefaultRating      = 4.5
)

type Product struct {
	ID           string    `json:"_id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Amount       float64   `json:"amt" bson:"amt"`
	Pic          string    `json:"pic" bson:"pic"`
	Images       []string  `json:"images" bson:"images"`
	Category     Category  `json:"category" bson:"category"`
	Description  string    `json:"description" bson:"description"`
	Stock        int       `json:"stock" bson:"stock"`
	Rating       float64   `json:"rating" bson:"rating"`
	ReviewsCount int       `json:"reviewsCount" bson:"reviews_count"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}
