package status

// Upload represents video upload outcome
type Upload int

const (
	// Completed - bytes confirmed in durable storage
	Completed Upload = iota + 1
	// Failed value
	Failed
)

var (
	uploadName = map[Upload]string{Completed: "completed", Failed: "failed"}
	nameUpload = map[string]Upload{"completed": Completed, "failed": Failed}
)

func (st Upload) String() string {
	return uploadName[st]
}

// From returns status obj from string
func From(st string) Upload {
	return nameUpload[st]
}
