package services

import "errors"

// エラー分類。ハンドラー側でerrors.Isによりステータスコードへ変換する。
var (
	// ErrInsufficientData 学習データが最低限（週次周期2回分=14点）に満たない
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrModelNotFound 学習済みモデルが存在せず、履歴からの学習もできない
	ErrModelNotFound = errors.New("forecast model not found")

	// ErrUnsupportedHorizon 学習期間の終端から離れすぎた日付への予測要求
	ErrUnsupportedHorizon = errors.New("forecast horizon not supported")

	// ErrInvalidServiceLevel サービスレベル目標が(0,1)の開区間外
	ErrInvalidServiceLevel = errors.New("invalid service level target")

	// ErrUnknownProduct レシピ・カタログに存在しない製品
	ErrUnknownProduct = errors.New("unknown product")

	// ErrAdvisoryUnavailable 外部アドバイザリーサービスの呼び出し失敗
	ErrAdvisoryUnavailable = errors.New("advisory service unavailable")
)
