package worker

import (
	"context"
	"fmt"
	"testing"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/intervu/intervu/internal/pkg/messages"
	"github.com/intervu/intervu/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/vgarvardt/gue/v5"
)

var (
	pipelineMock *mockPipeline
	srvData      *ServiceData
)

func initTest(t *testing.T) {
	pipelineMock = &mockPipeline{}
	srvData = &ServiceData{GueClient: &gue.Client{}, WorkerCount: 10, Pipeline: pipelineMock}
}

func Test_handleTranscribe(t *testing.T) {
	initTest(t)
	err := handleTranscribe(test.Ctx(t), &messages.TranscribeMessage{
		QueueMessage: amessages.QueueMessage{ID: "vid1"}, SessionID: "s1", QuestionID: "q1"}, srvData)
	assert.Nil(t, err)
	assert.Equal(t, []string{"vid1"}, pipelineMock.ids)
}

func Test_handleTranscribe_Fails(t *testing.T) {
	initTest(t)
	pipelineMock.err = fmt.Errorf("olia err")
	err := handleTranscribe(test.Ctx(t), &messages.TranscribeMessage{
		QueueMessage: amessages.QueueMessage{ID: "vid1"}}, srvData)
	assert.NotNil(t, err)
}

func Test_validate(t *testing.T) {
	initTest(t)
	type args struct {
		data *ServiceData
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{data: &ServiceData{GueClient: &gue.Client{}, WorkerCount: 10, Pipeline: pipelineMock}}, wantErr: false},
		{name: "Fail no client", args: args{data: &ServiceData{WorkerCount: 10, Pipeline: pipelineMock}}, wantErr: true},
		{name: "Fail no workers", args: args{data: &ServiceData{GueClient: &gue.Client{}, Pipeline: pipelineMock}}, wantErr: true},
		{name: "Fail no pipeline", args: args{data: &ServiceData{GueClient: &gue.Client{}, WorkerCount: 10}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.args.data); (err != nil) != tt.wantErr {
				t.Errorf("StartWorkerService() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type mockPipeline struct {
	ids []string
	err error
}

func (m *mockPipeline) Process(ctx context.Context, videoResponseID string) error {
	m.ids = append(m.ids, videoResponseID)
	return m.err
}
