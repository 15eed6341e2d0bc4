package notification

import "fmt"

// ObjectType is the kind of host object a notification refers to.
type ObjectType int32

const (
	ObjectTypeOther               ObjectType = -1
	ObjectTypeDevice              ObjectType = 0
	ObjectTypeEntity              ObjectType = 1
	ObjectTypeSource              ObjectType = 2
	ObjectTypeDestination         ObjectType = 3
	ObjectTypeExternalDevice      ObjectType = 0x10
	ObjectTypeExternalEntity      ObjectType = 0x11
	ObjectTypeExternalSource      ObjectType = 0x12
	ObjectTypeExternalDestination ObjectType = 0x13
)

var objectTypeNames = map[ObjectType]string{
	ObjectTypeOther:               "other",
	ObjectTypeDevice:              "device",
	ObjectTypeEntity:              "entity",
	ObjectTypeSource:              "source",
	ObjectTypeDestination:         "destination",
	ObjectTypeExternalDevice:      "external-device",
	ObjectTypeExternalEntity:      "external-entity",
	ObjectTypeExternalSource:      "external-source",
	ObjectTypeExternalDestination: "external-destination",
}

// ParseObjectType converts a raw host value into an ObjectType.
func ParseObjectType(v int32) (ObjectType, error) {
	t := ObjectType(v)
	if _, ok := objectTypeNames[t]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownObjectType, v)
	}
	return t, nil
}

func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ObjectType(%d)", int32(t))
}
