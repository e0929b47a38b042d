package core

const (
	KindVideo = "video"
	KindAudio = "audio"
)

const (
	CodecH264 = "H264"
	CodecH265 = "H265"
	CodecAAC  = "MPEG4-GENERIC"
)

const PayloadTypeRAW byte = 255
