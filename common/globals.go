package common

// FlyableVersion is the current Flyable version as a string.
const FlyableVersion string = "0.1.0"

// ProjectFileName is the name for Flyable project files.
const ProjectFileName string = "flyable.toml"

// SourceFileExt is the file extension for a Python source file.
const SourceFileExt string = ".py"

// ScratchDirName is the name of the directory inside the output directory
// holding the intermediate files of a build.
const ScratchDirName string = ".flyable"

// ObjectFileName is the name of the object file produced for a program.
const ObjectFileName string = "output.o"

// EntryFuncName is the name of the implicit function holding the module-level
// statements of a source file.
const EntryFuncName string = "__main__"
