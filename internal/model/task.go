package model

import "time"

// Task is the read shape of a task.
type Task struct {
	ID    int64     `db:"id" json:"id"`
	Title string    `db:"title" json:"title"`
	Done  bool      `db:"done" json:"done"`
	CID   int64     `db:"cid" json:"cid"`
	CTime time.Time `db:"ctime" json:"ctime"`
	MID   int64     `db:"mid" json:"mid"`
	MTime time.Time `db:"mtime" json:"mtime"`
}

// TaskForCreate is the create shape. Title is required.
type TaskForCreate struct {
	Title string `db:"title" json:"title"`
	Done  *bool  `db:"done" json:"done,omitempty"`
}

// TaskForUpdate is the update shape. Nil fields are left untouched.
type TaskForUpdate struct {
	Title *string `db:"title" json:"title,omitempty"`
	Done  *bool   `db:"done" json:"done,omitempty"`
}

// TaskBmc is the task controller.
var TaskBmc = NewBmc[Task, Task, TaskForCreate, TaskForUpdate]("task")
