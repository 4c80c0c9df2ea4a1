package observability

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
)

// Colony network semantic convention attributes.
var (
	AttrOperation  = attribute.Key("colony.operation")
	AttrColony     = attribute.Key("colony.address")
	AttrTask       = attribute.Key("colony.task.id")
	AttrFunction   = attribute.Key("colony.task.function")
	AttrDomain     = attribute.Key("colony.domain.id")
	AttrSkill      = attribute.Key("colony.skill.id")
	AttrToken      = attribute.Key("colony.token")
	AttrErrorCode  = attribute.Key("colony.error.code")
	AttrErrorClass = attribute.Key("colony.error.class")
)

// TaskOperation creates attributes for task-scoped operations.
func TaskOperation(colony string, task uint64, function string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrColony.String(colony),
		AttrTask.Int64(int64(task)),
	}
	if function != "" {
		attrs = append(attrs, AttrFunction.String(function))
	}
	return attrs
}

// ColonyOperation creates attributes for colony-scoped operations.
func ColonyOperation(colony string) []attribute.KeyValue {
	return []attribute.KeyValue{AttrColony.String(colony)}
}

// ErrorAttributes classifies err for error metrics.
func ErrorAttributes(err error) []attribute.KeyValue {
	code := colonyerr.CodeOf(err)
	if code == "" {
		return []attribute.KeyValue{AttrErrorClass.String("INTERNAL")}
	}
	return []attribute.KeyValue{
		AttrErrorCode.String(code),
		AttrErrorClass.String(string(colonyerr.ClassOf(err))),
	}
}
