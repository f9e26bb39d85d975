package service

import (
	"strings"

	"github.com/google/uuid"

	"vsgifts-api/internal/models"
	"vsgifts-api/internal/util"
)

type AddressInput struct {
	Type      models.AddressType `json:"type"`
	Street    string             `json:"street"`
	City      string             `json:"city"`
	State     string             `json:"state"`
	ZipCode   string             `json:"zipCode"`
	Country   string             `json:"country"`
	IsDefault bool               `json:"isDefault"`
}

func (in AddressInput) normalize() (models.Address, error) {
	addr := models.Address{
		Type:      models.AddressType(strings.ToLower(strings.TrimSpace(string(in.Type)))),
		Street:    util.SanitizeInput(in.Street),
		City:      util.SanitizeInput(in.City),
		State:     util.SanitizeInput(in.State),
		ZipCode:   util.SanitizeInput(in.ZipCode),
		Country:   util.SanitizeInput(in.Country),
		IsDefault: in.IsDefault,
	}
	if addr.Street == "" || addr.City == "" || addr.State == "" || addr.ZipCode == "" {
		return addr, invalid("All required address fields must be provided.")
	}
	if addr.Type == "" {
		addr.Type = models.AddressHome
	}
	if !addr.Type.Valid() {
		return addr, invalid("Address type must be home, work or other.")
	}
	if addr.Country == "" {
		addr.Country = models.DefaultCountry
	}
	return addr, nil
}

// The helpers below keep an address list with exactly one default whenever
// it is non-empty.

func addAddress(list []models.Address, in AddressInput) ([]models.Address, error) {
	if len(list) >= models.MaxAddresses {
		return list, invalid("Only Add Upto 2 address")
	}
	addr, err := in.normalize()
	if err != nil {
		return list, err
	}
	addr.ID = uuid.NewString()
	if len(list) == 0 {
		addr.IsDefault = true
	}
	if addr.IsDefault {
		clearDefault(list)
	}
	return append(list, addr), nil
}

func updateAddress(list []models.Address, id string, in AddressInput) ([]models.Address, error) {
	i := indexOfAddress(list, id)
	if i < 0 {
		return list, ErrAddressNotFound
	}
	// Country is optional on edits; keep the stored one.
	if strings.TrimSpace(in.Country) == "" {
		in.Country = list[i].Country
	}
	addr, err := in.normalize()
	if err != nil {
		return list, err
	}
	addr.ID = id
	addr.IsDefault = in.IsDefault || list[i].IsDefault
	if addr.IsDefault {
		clearDefault(list)
	}
	list[i] = addr
	return list, nil
}

func deleteAddress(list []models.Address, id string) ([]models.Address, error) {
	i := indexOfAddress(list, id)
	if i < 0 {
		return list, ErrAddressNotFound
	}
	wasDefault := list[i].IsDefault
	list = append(list[:i], list[i+1:]...)
	if wasDefault && len(list) > 0 {
		list[0].IsDefault = true
	}
	return list, nil
}

func clearDefault(list []models.Address) {
	for i := range list {
		list[i].IsDefault = false
	}
}

func indexOfAddress(list []models.Address, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
