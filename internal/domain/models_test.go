package domain

import "testing"

func TestChoice(t *testing.T) {
	if opt, ok := Pick(2).Option(); !ok || opt != 2 {
		t.Fatalf("expected option 2, got %d %v", opt, ok)
	}
	if Pick(0).Skipped() {
		t.Fatalf("pick must not be a skip")
	}
	if _, ok := Skip().Option(); ok || !Skip().Skipped() {
		t.Fatalf("skip must carry no option")
	}
}

func TestQuestionValidate(t *testing.T) {
	valid := Question{ID: 1, Text: "q", Options: []string{"a", "b"}, Correct: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}

	invalid := []Question{
		{ID: 2, Options: []string{"a", "b"}},
		{ID: 3, Text: "q", Options: []string{"a"}},
		{ID: 4, Text: "q", Options: []string{"a", "b"}, Correct: 2},
		{ID: 5, Text: "q", Options: []string{"a", "b"}, Correct: -1},
		{ID: 6, Text: "q", Options: []string{"a", "b"}, Seconds: -1},
	}
	for _, q := range invalid {
		if err := q.Validate(); err == nil {
			t.Fatalf("expected question %d to be rejected", q.ID)
		}
	}
}

func TestErrorCode(t *testing.T) {
	if ErrorCode(ErrRoomNotFound) != "invalid-room" {
		t.Fatalf("unexpected code %q", ErrorCode(ErrRoomNotFound))
	}
	if !Silent(ErrNotAuthorized) || Silent(ErrNameTaken) {
		t.Fatalf("unexpected silent classification")
	}
}
