package models

// PropertyInfo describes a parcel looked up from an address. Zoning and lot
// attributes come from the parcel service when available and from placeholder
// defaults otherwise.
type PropertyInfo struct {
	Address       string   `json:"address"`
	City          string   `json:"city"`
	Zoning        string   `json:"zoning"`
	LotSizeSqft   int      `json:"lot_size_sqft"`
	ExistingUnits int      `json:"existing_units"`
	ParcelID      string   `json:"parcel_id"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}
