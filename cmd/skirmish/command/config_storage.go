package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-skirmish/internal/hexmap"
	"github.com/pixil98/go-skirmish/internal/storage"
)

type StorageConfig struct {
	Maps AssetConfig[*hexmap.MapSpec] `json:"maps"`
}

func (c *StorageConfig) Validate() error {
	el := errors.NewErrorList()
	el.Add(c.Maps.Validate("maps"))
	return el.Err()
}

func (c *StorageConfig) BuildMapStore() (*storage.FileStore[*hexmap.MapSpec], error) {
	maps, err := c.Maps.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating map store: %w", err)
	}
	return maps, nil
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
