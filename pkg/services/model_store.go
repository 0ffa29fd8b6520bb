package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"freshcast-api/pkg/models"
)

// FileModelStore 学習済み予測モデルをJSONファイルとして永続化する
// ModelStore実装。製品ごとに <dir>/<productID>.json へ保存する。
type FileModelStore struct {
	dir string
}

// NewFileModelStore 新しいファイルベースのモデルストアを作成
func NewFileModelStore(dir string) *FileModelStore {
	return &FileModelStore{dir: dir}
}

// LoadModel 製品の学習済みモデルを読み込む。
// ファイルが存在しない場合は(nil, nil)を返す（未学習はエラーではない）。
func (fs *FileModelStore) LoadModel(productID string) (*models.ForecastModel, error) {
	path := fs.modelPath(productID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("モデルファイルの読み込みに失敗 (%s): %w", path, err)
	}

	var model models.ForecastModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("モデルファイルの解析に失敗 (%s): %w", path, err)
	}
	return &model, nil
}

// SaveModel 学習済みモデルを保存する。一時ファイルへ書いてから
// リネームすることで、読み込み側が中途半端なファイルを見ないようにする。
func (fs *FileModelStore) SaveModel(productID string, model *models.ForecastModel) error {
	if err := os.MkdirAll(fs.dir, 0o755); err != nil {
		return fmt.Errorf("モデルディレクトリの作成に失敗: %w", err)
	}

	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("モデルのJSON化に失敗: %w", err)
	}

	path := fs.modelPath(productID)
	tmp, err := os.CreateTemp(fs.dir, "model-*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("モデルの書き込みに失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("一時ファイルのクローズに失敗: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("モデルファイルの置き換えに失敗: %w", err)
	}
	return nil
}

func (fs *FileModelStore) modelPath(productID string) string {
	return filepath.Join(fs.dir, normalizeProductID(productID)+".json")
}
