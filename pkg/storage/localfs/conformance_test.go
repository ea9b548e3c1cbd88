// Copyright © 2018 One Concern

package localfs

import (
	"testing"

	"github.com/oneconcern/swarmtrie/pkg/storage"
	"github.com/oneconcern/swarmtrie/pkg/storage/storagetest"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, New(afero.NewMemMapFs()))
}

func TestConformanceInstrumented(t *testing.T) {
	storagetest.Run(t, storage.Instrument(zap.NewNop(), New(afero.NewMemMapFs())))
}
