package cache

// Key layout, colon separated:
//
//	q:<class>:<descriptor key>  query page entries
//	e:<class>:<id>              entity entries
//	v:h:<class>                 class hard stream
//	v:s:<class>                 class soft stream
//	v:e:<class>:<id>            per-subject stream

func pageKey(class Class, key string) string { return "q:" + string(class) + ":" + key }

func subjectKey(class Class, id string) string { return "e:" + string(class) + ":" + id }

func hardKey(class Class) string { return "v:h:" + string(class) }

func softKey(class Class) string { return "v:s:" + string(class) }

func subjectVerKey(class Class, id string) string { return "v:e:" + string(class) + ":" + id }
