package webrtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const (
	streamID         = "warpcall"
	defaultFrameTime = 33 * time.Millisecond
	oggPageDuration  = 20 * time.Millisecond
	opusSampleRate   = 48000
)

// Media is a set of acquired local tracks. Release frees whatever backs
// them and may be called more than once.
type Media struct {
	Audio pion.TrackLocal
	Video pion.TrackLocal

	once    sync.Once
	release func()
}

// NewMedia wraps tracks with the function that releases them.
func NewMedia(audio, video pion.TrackLocal, release func()) *Media {
	return &Media{Audio: audio, Video: video, release: release}
}

// Release stops the tracks and frees their sources.
func (m *Media) Release() {
	m.once.Do(func() {
		if m.release != nil {
			m.release()
		}
	})
}

// MediaSource acquires local tracks. Acquire either returns every
// requested track or returns a *DeviceError and holds nothing.
type MediaSource interface {
	Acquire(audio, video bool) (*Media, error)
}

// FileSource plays an IVF (VP8) file as the camera and an Ogg/Opus file as
// the microphone. Playback loops until the media is released.
type FileSource struct {
	VideoPath string
	AudioPath string
}

// Acquire opens the configured files and starts pacing their frames into
// static-sample tracks.
func (f *FileSource) Acquire(audio, video bool) (*Media, error) {
	ctx, cancel := context.WithCancel(context.Background())
	var (
		wg    sync.WaitGroup
		files []*os.File
	)
	release := func() {
		cancel()
		wg.Wait()
		for _, file := range files {
			file.Close()
		}
	}

	var videoTrack, audioTrack *pion.TrackLocalStaticSample

	if video {
		file, track, err := openVideo(f.VideoPath)
		if err != nil {
			release()
			return nil, &DeviceError{Device: "video", Err: err}
		}
		files = append(files, file)
		videoTrack = track

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := playIVF(ctx, file, track); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("video playback stopped", "file", f.VideoPath, "error", err)
			}
		}()
	}

	if audio {
		file, track, err := openAudio(f.AudioPath)
		if err != nil {
			release()
			return nil, &DeviceError{Device: "audio", Err: err}
		}
		files = append(files, file)
		audioTrack = track

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := playOgg(ctx, file, track); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("audio playback stopped", "file", f.AudioPath, "error", err)
			}
		}()
	}

	m := &Media{release: release}
	if videoTrack != nil {
		m.Video = videoTrack
	}
	if audioTrack != nil {
		m.Audio = audioTrack
	}
	return m, nil
}

func openVideo(path string) (*os.File, *pion.TrackLocalStaticSample, error) {
	if path == "" {
		return nil, nil, ErrNoDevice
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	_, header, err := ivfreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("read ivf header: %w", err)
	}
	if header.FourCC != "VP80" {
		file.Close()
		return nil, nil, fmt.Errorf("unsupported video codec %q, want VP80", header.FourCC)
	}

	track, err := pion.NewTrackLocalStaticSample(pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8}, "video", streamID)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return file, track, nil
}

func openAudio(path string) (*os.File, *pion.TrackLocalStaticSample, error) {
	if path == "" {
		return nil, nil, ErrNoDevice
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if _, _, err := oggreader.NewWith(file); err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("read ogg header: %w", err)
	}

	track, err := pion.NewTrackLocalStaticSample(pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus}, "audio", streamID)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return file, track, nil
}

// playIVF writes frames at the file's frame rate, rewinding at the end.
func playIVF(ctx context.Context, file io.ReadSeeker, track *pion.TrackLocalStaticSample) error {
	for {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		reader, header, err := ivfreader.NewWith(file)
		if err != nil {
			return err
		}

		frameTime := defaultFrameTime
		if header.TimebaseDenominator > 0 && header.TimebaseNumerator > 0 {
			frameTime = time.Duration(header.TimebaseNumerator) * time.Second / time.Duration(header.TimebaseDenominator)
		}

		if err := pace(ctx, frameTime, func() (bool, error) {
			frame, _, err := reader.ParseNextFrame()
			if endOfFile(err) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return true, track.WriteSample(media.Sample{Data: frame, Duration: frameTime})
		}); err != nil {
			return err
		}
	}
}

// playOgg writes one Opus page per tick, rewinding at the end.
func playOgg(ctx context.Context, file io.ReadSeeker, track *pion.TrackLocalStaticSample) error {
	for {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		reader, _, err := oggreader.NewWith(file)
		if err != nil {
			return err
		}

		var lastGranule uint64
		if err := pace(ctx, oggPageDuration, func() (bool, error) {
			page, header, err := reader.ParseNextPage()
			if endOfFile(err) {
				return false, nil
			}
			if err != nil {
				return false, err
			}

			samples := header.GranulePosition - lastGranule
			lastGranule = header.GranulePosition
			duration := time.Duration(samples) * time.Second / opusSampleRate
			return true, track.WriteSample(media.Sample{Data: page, Duration: duration})
		}); err != nil {
			return err
		}
	}
}

// pace calls step once per interval until it reports no more data, fails,
// or ctx ends.
func pace(ctx context.Context, interval time.Duration, step func() (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		more, err := step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func endOfFile(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
