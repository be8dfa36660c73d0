package device

import (
	"github.com/coler706/nova-renderer/adapter"
	"github.com/coler706/nova-renderer/gpu"
	"github.com/dolthub/swiss"
)

// QueueRole names what a queue handle is used for
type QueueRole int

const (
	QueueRoleGraphics QueueRole = iota
	QueueRolePresent
)

func (r QueueRole) String() string {
	switch r {
	case QueueRoleGraphics:
		return "Graphics"
	case QueueRolePresent:
		return "Present"
	}
	return "Unknown"
}

// QueueRequest asks for one queue from a family
type QueueRequest struct {
	Family   int
	Priority float32
}

// UniqueQueueRequests returns one request per distinct family the selection uses,
// graphics first. A family serving both roles is requested once.
func UniqueQueueRequests(selection adapter.Selection) []QueueRequest {
	families := []int{selection.GraphicsFamily, selection.PresentFamily}
	seen := swiss.NewMap[int, struct{}](uint32(len(families)))

	var requests []QueueRequest
	for _, family := range families {
		if seen.Has(family) {
			continue
		}
		seen.Put(family, struct{}{})
		requests = append(requests, QueueRequest{Family: family, Priority: 1.0})
	}
	return requests
}

func deviceQueueInfos(requests []QueueRequest) []gpu.DeviceQueueInfo {
	infos := make([]gpu.DeviceQueueInfo, 0, len(requests))
	for _, request := range requests {
		infos = append(infos, gpu.DeviceQueueInfo{
			Family:     request.Family,
			Priorities: []float32{request.Priority},
		})
	}
	return infos
}

// QueueHandle binds a role to a platform queue. When graphics and present share
// a family both handles hold the same Queue, and the caller orders submissions
// across the two roles.
type QueueHandle struct {
	Role   QueueRole
	Family int
	Queue  gpu.Queue
}
