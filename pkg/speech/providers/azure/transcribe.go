package azure

import (
	"context"
	"fmt"
	"sync"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	azspeech "github.com/Microsoft/cognitive-services-speech-sdk-go/speech"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

// transcribeClient holds the actual Azure SDK configuration and objects.
type transcribeClient struct {
	config *azspeech.SpeechConfig
	log    *logrus.Entry
}

// newTranscribeClient creates a new client.
func newTranscribeClient(creds config.CredentialsConfig, log *logrus.Entry) (*transcribeClient, error) {
	if creds.APIKey == "" || creds.Region == "" {
		return nil, fmt.Errorf("azure provider requires api_key (subscription key) and region")
	}

	cnf, err := azspeech.NewSpeechConfigFromSubscription(creds.APIKey, creds.Region)
	if err != nil {
		return nil, err
	}

	return &transcribeClient{
		config: cnf,
		log:    log,
	}, nil
}

func (c *transcribeClient) TranscribeStream(ctx context.Context, opts *speech.StreamOptions) (speech.TranscriptionStream, error) {
	log := c.log.WithFields(logrus.Fields{
		"method":    "TranscribeStream",
		"sessionId": opts.SessionId,
	})
	log.Infoln("starting transcription")

	if opts.Language != "" {
		if err := c.config.SetSpeechRecognitionLanguage(opts.Language); err != nil {
			return nil, err
		}
	}

	audioFormat, err := audio.GetWaveFormatPCM(16000, 16, 1)
	if err != nil {
		return nil, fmt.Errorf("could not create audio format: %v", err)
	}

	inputStream, err := audio.CreatePushAudioInputStreamFromFormat(audioFormat)
	if err != nil {
		return nil, fmt.Errorf("could not create audio config from custom inputStream: %v", err)
	}

	audioConfig, err := audio.NewAudioConfigFromStreamInput(inputStream)
	if err != nil {
		return nil, err
	}

	recognizer, err := azspeech.NewSpeechRecognizerFromConfig(c.config, audioConfig)
	if err != nil {
		return nil, err
	}

	resultsChan := make(chan *speech.TranscriptionResult)

	// SessionStopped and Canceled can both fire on the same stream.
	var closeOnce sync.Once
	closeResults := func() {
		closeOnce.Do(func() {
			close(resultsChan)
		})
	}

	recognizer.SessionStarted(func(e azspeech.SessionEventArgs) {
		log.Infoln("azure transcription started")
	})
	recognizer.SessionStopped(func(e azspeech.SessionEventArgs) {
		closeResults()
		log.Infoln("azure transcription stopped")
	})

	recognizer.Recognizing(func(e azspeech.SpeechRecognitionEventArgs) {
		resultsChan <- &speech.TranscriptionResult{
			Text:      e.Result.Text,
			IsPartial: true,
			Start:     e.Result.Offset,
			End:       e.Result.Offset + e.Result.Duration,
			Language:  opts.Language,
		}
	})

	recognizer.Recognized(func(e azspeech.SpeechRecognitionEventArgs) {
		resultsChan <- &speech.TranscriptionResult{
			Text:      e.Result.Text,
			IsPartial: false,
			Start:     e.Result.Offset,
			End:       e.Result.Offset + e.Result.Duration,
			Language:  opts.Language,
		}
	})

	recognizer.Canceled(func(e azspeech.SpeechRecognitionCanceledEventArgs) {
		log.Infof("azure transcription canceled: %v\n", e.ErrorDetails)
		closeResults()
	})

	go func() {
		// StartContinuousRecognitionAsync returns a channel that provides the result of the async operation.
		// We must wait for and check the error from this channel.
		err := <-recognizer.StartContinuousRecognitionAsync()
		if err != nil {
			log.WithError(err).Errorln("error starting azure recognition")
			closeResults()
		}
	}()

	go func() {
		<-ctx.Done()
		recognizer.StopContinuousRecognitionAsync()
	}()

	stream := &azureTranscribeStream{
		pushStream: inputStream,
		recognizer: recognizer,
		results:    resultsChan,
	}

	return stream, nil
}
