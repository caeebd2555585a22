package engine_test

import "testlab/internal/events"

func eventsFilter(kind, id string) events.Filter {
	return events.Filter{EntityKind: kind, EntityID: id}
}
