package controlplane

import (
	"github.com/redux-robotics/reduxfifo/internal/controlplane/reduxfifopb"
	"github.com/redux-robotics/reduxfifo/internal/message"
)

func messageToPB(msg message.Message) *reduxfifopb.CANMessage {
	return &reduxfifopb.CANMessage{
		ID:        msg.ID,
		BusID:     uint32(msg.BusID),
		Flags:     uint32(msg.Flags),
		DataSize:  uint32(msg.DataSize),
		Timestamp: msg.Timestamp,
		Data:      append([]byte(nil), msg.DataSlice()...),
	}
}

func messageFromPB(pb *reduxfifopb.CANMessage) message.Message {
	msg := message.NewWithData(pb.ID, pb.Data)
	msg.BusID = uint16(pb.BusID)
	msg.Flags = byte(pb.Flags)
	msg.Timestamp = pb.Timestamp
	return msg
}
