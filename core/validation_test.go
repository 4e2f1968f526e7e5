package core

import (
	"errors"
	"testing"
)

func TestValidateRecipe(t *testing.T) {
	tests := []struct {
		name    string
		recipe  *Recipe
		wantErr error
	}{
		{
			name:    "valid recipe",
			recipe:  &Recipe{Name: "番茄炒蛋"},
			wantErr: nil,
		},
		{
			name:    "valid recipe with extras",
			recipe:  &Recipe{Name: "紅燒肉", Description: "經典家常菜", Ingredients: "五花肉"},
			wantErr: nil,
		},
		{
			name:    "nil recipe",
			recipe:  nil,
			wantErr: ErrInvalidRecipe,
		},
		{
			name:    "blank name",
			recipe:  &Recipe{Name: "   "},
			wantErr: ErrEmptyRecipeName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecipe(tt.recipe)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRecipe() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecipe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateExemplar(t *testing.T) {
	tests := []struct {
		name     string
		exemplar *Exemplar
		wantErr  error
	}{
		{
			name:     "valid exemplar",
			exemplar: &Exemplar{Phrase: "今天天氣如何", Intent: IntentWeather},
		},
		{
			name:     "valid exemplar without vector",
			exemplar: &Exemplar{Phrase: "你好", Intent: IntentGreeting, Vector: nil},
		},
		{
			name:     "nil exemplar",
			exemplar: nil,
			wantErr:  ErrInvalidExemplar,
		},
		{
			name:     "empty phrase",
			exemplar: &Exemplar{Intent: IntentWeather},
			wantErr:  ErrEmptyPhrase,
		},
		{
			name:     "unknown intent",
			exemplar: &Exemplar{Phrase: "訂機票", Intent: Intent("book_flight")},
			wantErr:  ErrUnknownIntent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExemplar(tt.exemplar)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateExemplar() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateExemplar() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIntent(t *testing.T) {
	for _, intent := range Intents() {
		if err := ValidateIntent(intent); err != nil {
			t.Errorf("ValidateIntent(%q) unexpected error = %v", intent, err)
		}
	}
	if err := ValidateIntent(""); !errors.Is(err, ErrUnknownIntent) {
		t.Errorf("ValidateIntent(\"\") error = %v, want %v", err, ErrUnknownIntent)
	}
}

func TestValidateDimensions(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		wantDim int
		wantErr error
	}{
		{"empty set", nil, 0, nil},
		{"uniform", [][]float32{{1, 0}, {0, 1}}, 2, nil},
		{"mismatch", [][]float32{{1, 0}, {0, 1, 0}}, 0, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dim, err := ValidateDimensions(tt.vectors)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateDimensions() error = %v, want %v", err, tt.wantErr)
			}
			if dim != tt.wantDim {
				t.Errorf("ValidateDimensions() dim = %d, want %d", dim, tt.wantDim)
			}
		})
	}
}
