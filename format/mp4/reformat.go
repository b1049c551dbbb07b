package mp4

import (
	mch264 "github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/utils/nal"
)

// reformatSample converts start-code delimited H.264 and H.265 samples into 4-byte length-prefixed
// NAL units. Other samples are returned unchanged.
func reformatSample(par mp4mux.CodecParameters, data []byte) ([]byte, error) {
	if !par.Type().NeedsLengthPrefixedNALUs() || !nal.IsAnnexB(data) {
		return data, nil
	}
	return mch264.AVCCMarshal(nal.SplitAnnexB(data))
}
