package clean

import (
	"fmt"
	"testing"

	"github.com/intervu/intervu/internal/pkg/test"
	"github.com/intervu/intervu/internal/pkg/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	objectsMock *mocks.Filer
	tCleaner    *SessionCleaner
)

func initCleanerTest(t *testing.T) {
	objectsMock = &mocks.Filer{}
	var err error
	tCleaner, err = NewSessionCleaner(newCleanMock(false), objectsMock)
	require.Nil(t, err)
	objectsMock.On("DeletePrefix", mock.Anything, mock.Anything).Return(2, nil)
}

func TestNewSessionCleaner(t *testing.T) {
	_, err := NewSessionCleaner(nil, &mocks.Filer{})
	assert.NotNil(t, err)
	_, err = NewSessionCleaner(newCleanMock(false), nil)
	assert.NotNil(t, err)
}

func TestClean(t *testing.T) {
	initCleanerTest(t)
	err := tCleaner.Clean(test.Ctx(t), "s1")
	assert.Nil(t, err)
	objectsMock.AssertCalled(t, "DeletePrefix", mock.Anything, "videos/s1/")
}

func TestClean_NoID(t *testing.T) {
	initCleanerTest(t)
	err := tCleaner.Clean(test.Ctx(t), "")
	assert.NotNil(t, err)
	objectsMock.AssertNotCalled(t, "DeletePrefix", mock.Anything, mock.Anything)
}

func TestClean_ObjectsFail(t *testing.T) {
	initCleanerTest(t)
	objectsMock.ExpectedCalls = nil
	objectsMock.On("DeletePrefix", mock.Anything, mock.Anything).Return(0, fmt.Errorf("olia err"))
	err := tCleaner.Clean(test.Ctx(t), "s1")
	assert.NotNil(t, err)
}

func TestClean_DBFails(t *testing.T) {
	initCleanerTest(t)
	var err error
	tCleaner, err = NewSessionCleaner(newCleanMock(true), objectsMock)
	require.Nil(t, err)
	err = tCleaner.Clean(test.Ctx(t), "s1")
	assert.NotNil(t, err)
}
