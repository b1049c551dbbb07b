// Package segmenter records a packet stream into progressive MP4 files of roughly equal media
// duration. Files are rotated on video key frames.
package segmenter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ugparu/mp4mux"
	"github.com/ugparu/mp4mux/format/mp4"
	"github.com/ugparu/mp4mux/utils/lifecycle"
	"github.com/ugparu/mp4mux/utils/logger"
)

var errNilPacket = errors.New("segmenter: nil packet")

// activeFile is the file currently being written.
type activeFile struct {
	muxer     *mp4.Muxer
	path      string
	name      string
	startTime time.Time
	firstTS   time.Duration
	lastTS    time.Duration
}

func (af *activeFile) duration() time.Duration {
	return af.lastTS - af.firstTS
}

type segmenter struct {
	lifecycle.AsyncManager[*segmenter]
	dest           string
	targetDuration time.Duration
	conf           mp4.Config
	clock          func() time.Time

	inpPktCh  chan mp4mux.Packet
	outInfoCh chan mp4mux.FileInfo

	codecPar     mp4mux.CodecParametersPair
	activeFile   *activeFile
	seenKeyframe bool
	seq          int
}

// New returns a segmenter writing files of about segSize under dest, configured by conf.
func New(dest string, segSize time.Duration, conf mp4.Config, chanSize int) mp4mux.Segmenter {
	s := &segmenter{
		dest:           dest,
		targetDuration: segSize,
		conf:           conf,
		clock:          time.Now,
		inpPktCh:       make(chan mp4mux.Packet, chanSize),
		outInfoCh:      make(chan mp4mux.FileInfo, chanSize),
	}
	s.AsyncManager = lifecycle.NewAsyncManager(s, lifecycle.ContinueOnError)
	return s
}

// Write starts consuming packets.
func (s *segmenter) Write() {
	_ = s.Start(func(*segmenter) error { return nil })
}

func (s *segmenter) Step(stopCh <-chan struct{}) error {
	select {
	case <-stopCh:
		return lifecycle.ErrBreak
	case pkt := <-s.inpPktCh:
		return s.process(stopCh, pkt)
	}
}

func (s *segmenter) process(stopCh <-chan struct{}, pkt mp4mux.Packet) error {
	if pkt == nil {
		return errNilPacket
	}
	defer pkt.Close()

	// new parameters need a new moov box, so they start a new file
	switch p := pkt.(type) {
	case mp4mux.VideoPacket:
		if p.CodecParameters() != s.codecPar.VideoCodecParameters {
			s.codecPar.VideoCodecParameters = p.CodecParameters()
			s.seenKeyframe = false
			if err := s.closeActiveFile(stopCh); err != nil {
				return err
			}
		}
	case mp4mux.AudioPacket:
		if p.CodecParameters() != s.codecPar.AudioCodecParameters {
			s.codecPar.AudioCodecParameters = p.CodecParameters()
			if err := s.closeActiveFile(stopCh); err != nil {
				return err
			}
		}
	}

	vPkt, isVideo := pkt.(mp4mux.VideoPacket)
	isKeyframe := isVideo && vPkt.IsKeyFrame()
	if !s.seenKeyframe && !isKeyframe {
		return nil
	}
	s.seenKeyframe = true

	if isKeyframe && s.activeFile != nil && pkt.Timestamp()-s.activeFile.firstTS >= s.targetDuration {
		if err := s.closeActiveFile(stopCh); err != nil {
			return err
		}
	}
	if s.activeFile == nil {
		if !isKeyframe {
			return nil
		}
		if err := s.openNewFile(pkt.Timestamp()); err != nil {
			return err
		}
	}

	if err := s.activeFile.muxer.WritePacket(pkt); err != nil {
		// the writer is unusable after a failed write
		if cerr := s.closeActiveFile(stopCh); cerr != nil {
			logger.Warningf(s, "close file after failed write: %v", cerr)
		}
		return err
	}
	s.activeFile.lastTS = max(s.activeFile.lastTS, pkt.Timestamp())
	return nil
}

// openNewFile opens <dest>/<year>/<month>/<day>/<time>_<seq>.mp4 for the stream starting at ts.
func (s *segmenter) openNewFile(ts time.Duration) error {
	if s.codecPar.VideoCodecParameters == nil {
		return errors.New("segmenter: cannot open file without video codec parameters")
	}

	startTime := s.clock()
	folder := fmt.Sprintf("%d/%d/%d", startTime.Year(), startTime.Month(), startTime.Day())
	s.seq++
	name := fmt.Sprintf("%s/%s_%04d.mp4", folder, startTime.Format("2006-01-02T15-04-05"), s.seq)
	path := filepath.Join(s.dest, filepath.FromSlash(name))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("segmenter: %w", err)
	}
	muxer, err := mp4.CreateMuxer(path, s.conf)
	if err != nil {
		return err
	}
	if err = muxer.Mux(s.codecPar); err != nil {
		_ = muxer.Close()
		return err
	}

	s.activeFile = &activeFile{
		muxer:     muxer,
		path:      path,
		name:      name,
		startTime: startTime,
		firstTS:   ts,
		lastTS:    ts,
	}
	logger.Debugf(s, "opened %s", name)
	return nil
}

// closeActiveFile finalizes the current file and reports it unless stopCh closes first.
func (s *segmenter) closeActiveFile(stopCh <-chan struct{}) error {
	if s.activeFile == nil {
		return nil
	}
	af := s.activeFile
	s.activeFile = nil

	if err := af.muxer.Close(); err != nil {
		return err
	}
	fi, err := os.Stat(af.path)
	if err != nil {
		return fmt.Errorf("segmenter: %w", err)
	}

	info := mp4mux.FileInfo{
		Name:  af.name,
		Start: af.startTime,
		Stop:  af.startTime.Add(af.duration()),
		Size:  fi.Size(),
	}
	select {
	case s.outInfoCh <- info:
	case <-stopCh:
		logger.Warningf(s, "dropping file info of %s", af.name)
	}
	logger.Debugf(s, "closed %s, %v of media", af.name, af.duration())
	return nil
}

// Close_ records the packets queued before Close and finalizes the current file.
func (s *segmenter) Close_() { //nolint:revive
	const stopGraceTimeout = time.Second * 5
	stopCh := make(chan struct{})
	timer := time.AfterFunc(stopGraceTimeout, func() { close(stopCh) })
	defer timer.Stop()

	for len(s.inpPktCh) > 0 {
		if err := s.process(stopCh, <-s.inpPktCh); err != nil {
			logger.Warningf(s, "dropping queued packet: %v", err)
		}
	}
	if err := s.closeActiveFile(stopCh); err != nil {
		logger.Errorf(s, "close file: %v", err)
	}
	close(s.outInfoCh)
}

func (s *segmenter) String() string {
	return fmt.Sprintf("SEGMENTER dest=%s", s.dest)
}

// Packets returns the input channel. Packets sent after Close are never read.
func (s *segmenter) Packets() chan<- mp4mux.Packet {
	return s.inpPktCh
}

// Files returns the finished files.
func (s *segmenter) Files() <-chan mp4mux.FileInfo {
	return s.outInfoCh
}
