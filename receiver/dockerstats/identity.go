package dockerstats

import (
	"strings"
)

const (
	// taskIDEnv is the environment variable Mesos sets on every task
	// container, with a value of the form "<appid>.<taskid>".
	taskIDEnv = "MESOS_TASK_ID"

	shortTaskIDLen = 8
)

// Identity attributes container stats to a logical workload instance.
type Identity struct {
	AppID  string
	TaskID string
}

func (id Identity) labels() []string {
	return []string{id.AppID, id.TaskID}
}

// ParseIdentity extracts the identity from a container environment. The first
// MESOS_TASK_ID entry wins; its value is split on the first dot and the task
// id is shortened to 8 characters. ok is false when no usable entry exists.
func ParseIdentity(env []string) (id Identity, ok bool) {
	for _, kv := range env {
		key, value, found := strings.Cut(kv, "=")
		if !found || key != taskIDEnv {
			continue
		}
		appID, taskID, found := strings.Cut(value, ".")
		if !found || appID == "" || taskID == "" {
			return Identity{}, false
		}
		if len(taskID) > shortTaskIDLen {
			taskID = taskID[:shortTaskIDLen]
		}
		return Identity{AppID: appID, TaskID: taskID}, true
	}
	return Identity{}, false
}
