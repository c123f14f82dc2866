package mapper

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func toJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

// fromJSON decodes into out; empty or invalid columns leave out untouched.
func fromJSON(raw datatypes.JSON, out interface{}) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, out)
}
