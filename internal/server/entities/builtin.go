package entities

import "github.com/farmdeck/farmsync/internal/api"

// Builtin lists the record types of the farm record keeper.
var Builtin = []Schema{
	{Entity: api.EntityPaddocks, Fields: []Field{
		{Name: "name", Kind: KindString, Required: true},
		{Name: "area_ha", Kind: KindNumber},
		{Name: "polygon_geojson"},
		{Name: "crop_type", Kind: KindString},
		{Name: "crop_color", Kind: KindString},
	}},
	{Entity: api.EntityMobs, Fields: []Field{
		{Name: "name", Kind: KindString, Required: true},
		{Name: "count", Kind: KindNumber},
		{Name: "avg_weight", Kind: KindNumber},
		{Name: "paddock_id", Kind: KindString, Ref: api.EntityPaddocks},
	}},
	{Entity: api.EntityMovements, Fields: []Field{
		{Name: "mob_id", Kind: KindString, Required: true, Ref: api.EntityMobs},
		{Name: "from_paddock_id", Kind: KindString, Ref: api.EntityPaddocks},
		{Name: "to_paddock_id", Kind: KindString, Required: true, Ref: api.EntityPaddocks},
		{Name: "timestamp", Kind: KindString},
	}},
	{Entity: api.EntitySensors, Fields: []Field{
		{Name: "name", Kind: KindString, Required: true},
		{Name: "type", Kind: KindString, Required: true},
		{Name: "paddock_id", Kind: KindString, Ref: api.EntityPaddocks},
		{Name: "last_value"},
		{Name: "last_seen", Kind: KindString},
	}},
	{Entity: api.EntityPlans, Fields: []Field{
		{Name: "title", Kind: KindString, Required: true},
		{Name: "paddock_id", Kind: KindString, Ref: api.EntityPaddocks},
	}},
	{Entity: api.EntityIssues, Fields: []Field{
		{Name: "title", Kind: KindString, Required: true},
		{Name: "paddock_id", Kind: KindString, Ref: api.EntityPaddocks},
		{Name: "mob_id", Kind: KindString, Ref: api.EntityMobs},
	}},
	{Entity: api.EntityTasks, Fields: []Field{
		{Name: "title", Kind: KindString, Required: true},
		{Name: "plan_id", Kind: KindString, Ref: api.EntityPlans},
	}},
	{Entity: api.EntityWormingRecords, Fields: []Field{
		{Name: "mob_id", Kind: KindString, Required: true, Ref: api.EntityMobs},
		{Name: "drug", Kind: KindString, Required: true},
		{Name: "date", Kind: KindString},
		{Name: "worm_count", Kind: KindNumber},
		{Name: "notes", Kind: KindString},
	}},
	{Entity: api.EntitySprayRecords, Fields: []Field{
		{Name: "paddock_id", Kind: KindString, Required: true, Ref: api.EntityPaddocks},
		{Name: "chemical", Kind: KindString, Required: true},
		{Name: "date", Kind: KindString},
		{Name: "rate", Kind: KindString},
		{Name: "notes", Kind: KindString},
	}},
}
