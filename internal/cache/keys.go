package cache

// Resource names used as the first key segment.
const (
	ResourceAgents        = "agents"
	ResourceDrivers       = "drivers"
	ResourceConversations = "conversations"
)

// ListKey addresses the list query of a resource.
func ListKey(resource string) Key {
	return Key{resource}
}

// ItemKey addresses one record, optionally a sub-resource of it (messages, structured-data).
func ItemKey(resource, id string, sub ...string) Key {
	return append(Key{resource, id}, sub...)
}
