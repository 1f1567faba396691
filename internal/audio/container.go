package audio

// Container identifies the byte-stream format handed to the processor,
// mirroring the `AudioContainer` enum from the original decoder (§4.C).
type Container string

const (
	ContainerWebm Container = "webm"
	ContainerMP4  Container = "mp4"
	ContainerOgg  Container = "ogg"
	ContainerWAV  Container = "wav"
	ContainerMP3  Container = "mp3"
	ContainerFLAC Container = "flac"
	ContainerAAC  Container = "aac"
)

// MapMIMEToContainer mirrors map_mime_to_hint: a MIME type hints at the
// container a transcode source should be probed as.
func MapMIMEToContainer(mime string) Container {
	switch mime {
	case "audio/webm", "video/webm":
		return ContainerWebm
	case "audio/mp4", "video/mp4":
		return ContainerMP4
	case "audio/ogg", "application/ogg":
		return ContainerOgg
	case "audio/wav", "audio/x-wav":
		return ContainerWAV
	case "audio/mpeg", "audio/mp3":
		return ContainerMP3
	case "audio/flac", "audio/x-flac":
		return ContainerFLAC
	case "audio/aac", "audio/aacp":
		return ContainerAAC
	default:
		return ""
	}
}
