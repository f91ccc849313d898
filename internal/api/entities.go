package api

// Entity types understood by both sides.
const (
	EntityPaddocks       = "paddocks"
	EntityMobs           = "mobs"
	EntityMovements      = "movements"
	EntitySensors        = "sensors"
	EntityPlans          = "plans"
	EntityIssues         = "issues"
	EntityTasks          = "tasks"
	EntityWormingRecords = "worming_records"
	EntitySprayRecords   = "spray_records"
)

// Entities returns every known entity type.
func Entities() []string {
	return []string{
		EntityPaddocks, EntityMobs, EntityMovements, EntitySensors, EntityPlans,
		EntityIssues, EntityTasks, EntityWormingRecords, EntitySprayRecords,
	}
}
