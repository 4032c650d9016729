package utils

import (
	"testing"
)

func TestMakeStorageKey(t *testing.T) {
	type args struct {
		session  string
		question string
		name     string
	}
	tests := []struct {
		name    string
		args    args
		want    string
		wantErr bool
	}{
		{name: "OK", args: args{session: "s1", question: "q1", name: "a.mp4"}, want: "videos/s1/q1/a.mp4", wantErr: false},
		{name: "OK upper ext", args: args{session: "s1", question: "q1", name: "Olia.MP4"}, want: "videos/s1/q1/Olia.mp4", wantErr: false},
		{name: "OK drops path", args: args{session: "s1", question: "q1", name: "./../a.mp4"}, want: "videos/s1/q1/a.mp4", wantErr: false},
		{name: "OK space", args: args{session: "s1", question: "q1", name: "a b.webm"}, want: "videos/s1/q1/a_b.webm", wantErr: false},
		{name: "Fail no session", args: args{session: "", question: "q1", name: "a.mp4"}, wantErr: true},
		{name: "Fail no question", args: args{session: "s1", question: "", name: "a.mp4"}, wantErr: true},
		{name: "Fail no name", args: args{session: "s1", question: "q1", name: ""}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MakeStorageKey(tt.args.session, tt.args.question, tt.args.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("MakeStorageKey() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("MakeStorageKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupportVideoExt(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{ext: ".mp4", want: true},
		{ext: ".webm", want: true},
		{ext: ".mov", want: true},
		{ext: ".mkv", want: true},
		{ext: ".mp3", want: false},
		{ext: ".zip", want: false},
		{ext: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := SupportVideoExt(tt.ext); got != tt.want {
				t.Errorf("SupportVideoExt() = %v, want %v", got, tt.want)
			}
		})
	}
}
