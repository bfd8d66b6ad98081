package data

import "path/filepath"

// Tables bundles every static table the server loads at startup.
type Tables struct {
	ZonePoints *ZonePointTable
	Merchants  *MerchantTable
	Items      *ItemTable
	Regions    *RegionTable
	Doors      []DoorSpawn
}

// LoadAll reads every table from dir.
func LoadAll(dir string) (*Tables, error) {
	var (
		t   Tables
		err error
	)
	if t.Regions, err = LoadRegionTable(filepath.Join(dir, "regions.yaml")); err != nil {
		return nil, err
	}
	if t.ZonePoints, err = LoadZonePointTable(filepath.Join(dir, "zone_points.yaml")); err != nil {
		return nil, err
	}
	if t.Items, err = LoadItemTable(filepath.Join(dir, "item_templates.yaml")); err != nil {
		return nil, err
	}
	if t.Merchants, err = LoadMerchantTable(filepath.Join(dir, "merchant_lists.yaml")); err != nil {
		return nil, err
	}
	if t.Doors, err = LoadDoors(filepath.Join(dir, "doors.yaml")); err != nil {
		return nil, err
	}
	return &t, nil
}
