package connection

import "encoding/json"

// joinPayload is the exact JSON body of the action=7 join-room frame, per
// spec.md §3/§6.
type joinPayload struct {
	UID       int64  `json:"uid"`
	RoomID    int64  `json:"roomid"`
	ProtoVer  uint16 `json:"protover"`
	Platform  string `json:"platform"`
	ClientVer string `json:"clientver"`
	Type      int    `json:"type"`
	Key       string `json:"key"`
}

const (
	joinPlatform  = "web"
	joinClientVer = "1.13.4"
	joinType      = 2
)

func newJoinPayload(uid, roomID int64, protoVer uint16, key string) ([]byte, error) {
	p := joinPayload{
		UID:       uid,
		RoomID:    roomID,
		ProtoVer:  protoVer,
		Platform:  joinPlatform,
		ClientVer: joinClientVer,
		Type:      joinType,
		Key:       key,
	}
	return json.Marshal(p)
}
