package rtcpeer

import (
	"github.com/pion/webrtc/v4"

	"github.com/coderoom/janusrtc/pkg/handle"
)

func toPionDirection(d handle.TransceiverDirection) webrtc.RTPTransceiverDirection {
	switch d {
	case handle.DirectionSendOnly:
		return webrtc.RTPTransceiverDirectionSendonly
	case handle.DirectionRecvOnly:
		return webrtc.RTPTransceiverDirectionRecvonly
	case handle.DirectionSendRecv:
		return webrtc.RTPTransceiverDirectionSendrecv
	default:
		return webrtc.RTPTransceiverDirectionInactive
	}
}

func fromPionDirection(d webrtc.RTPTransceiverDirection) handle.TransceiverDirection {
	switch d {
	case webrtc.RTPTransceiverDirectionSendonly:
		return handle.DirectionSendOnly
	case webrtc.RTPTransceiverDirectionRecvonly:
		return handle.DirectionRecvOnly
	case webrtc.RTPTransceiverDirectionSendrecv:
		return handle.DirectionSendRecv
	default:
		return handle.DirectionInactive
	}
}

func toPionCodecType(kind string) webrtc.RTPCodecType {
	if kind == "video" {
		return webrtc.RTPCodecTypeVideo
	}
	return webrtc.RTPCodecTypeAudio
}

func fromPionICEState(s webrtc.ICEConnectionState) handle.ICEConnectionState {
	switch s {
	case webrtc.ICEConnectionStateChecking:
		return handle.ICEStateChecking
	case webrtc.ICEConnectionStateConnected:
		return handle.ICEStateConnected
	case webrtc.ICEConnectionStateCompleted:
		return handle.ICEStateCompleted
	case webrtc.ICEConnectionStateFailed:
		return handle.ICEStateFailed
	case webrtc.ICEConnectionStateDisconnected:
		return handle.ICEStateDisconnected
	case webrtc.ICEConnectionStateClosed:
		return handle.ICEStateClosed
	default:
		return handle.ICEStateNew
	}
}
